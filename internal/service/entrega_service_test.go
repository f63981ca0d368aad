package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type mockEntregaRepo struct {
	entregas    map[string]*models.Entrega
	notas       map[string]*models.Nota
	createErr   error
	upsertCalls int
}

func (m *mockEntregaRepo) FindByID(ctx context.Context, id, professorID string) (*models.Entrega, error) {
	if e, ok := m.entregas[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEntregaRepo) FindDetalheByID(ctx context.Context, id, professorID string) (*models.EntregaDetalhe, error) {
	if e, ok := m.entregas[id]; ok {
		return &models.EntregaDetalhe{Entrega: *e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEntregaRepo) Create(ctx context.Context, entrega *models.Entrega) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.entregas == nil {
		m.entregas = make(map[string]*models.Entrega)
	}
	entrega.ID = "ent-new"
	m.entregas[entrega.ID] = entrega
	return nil
}

func (m *mockEntregaRepo) UpdateStatus(ctx context.Context, id string, status models.EntregaStatus) error {
	if e, ok := m.entregas[id]; ok {
		e.Status = status
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockEntregaRepo) Delete(ctx context.Context, id string) error {
	delete(m.entregas, id)
	return nil
}

func (m *mockEntregaRepo) SetArquivo(ctx context.Context, id, ref string, submittedAt time.Time) error {
	if e, ok := m.entregas[id]; ok {
		e.Arquivo = &ref
		e.DataEntrega = &submittedAt
		if e.Status == models.EntregaStatusPendente {
			e.Status = models.EntregaStatusEntregue
		}
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockEntregaRepo) SweepAtrasadas(ctx context.Context, turmaID string, now time.Time) (int64, error) {
	var changed int64
	for _, e := range m.entregas {
		if e.Status == models.EntregaStatusPendente {
			e.Status = models.EntregaStatusAtrasado
			changed++
		}
	}
	return changed, nil
}

func (m *mockEntregaRepo) FindNotaByEntrega(ctx context.Context, entregaID string) (*models.Nota, error) {
	if n, ok := m.notas[entregaID]; ok {
		return n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEntregaRepo) UpsertNota(ctx context.Context, nota *models.Nota) error {
	m.upsertCalls++
	if m.notas == nil {
		m.notas = make(map[string]*models.Nota)
	}
	nota.ID = "nota-1"
	m.notas[nota.EntregaID] = nota
	if e, ok := m.entregas[nota.EntregaID]; ok {
		e.Status = models.EntregaStatusAvaliado
	}
	return nil
}

type mockAtividadeFinder struct {
	atividades map[string]*models.Atividade
}

func (m *mockAtividadeFinder) FindByID(ctx context.Context, id, professorID string) (*models.Atividade, error) {
	if a, ok := m.atividades[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

type mockTurmaFinder struct {
	turmas      map[string]*models.Turma
	matriculado map[string]bool
}

func (m *mockTurmaFinder) FindByID(ctx context.Context, id, professorID string) (*models.Turma, error) {
	if t, ok := m.turmas[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTurmaFinder) IsAlunoMatriculado(ctx context.Context, turmaID, alunoID string) (bool, error) {
	return m.matriculado[turmaID+"/"+alunoID], nil
}

type mockFileStore struct {
	saved   []string
	deleted []string
}

func (m *mockFileStore) SaveUpload(subdir, originalName string, r io.Reader) (string, error) {
	ref := subdir + "/" + originalName
	m.saved = append(m.saved, ref)
	return ref, nil
}

func (m *mockFileStore) Delete(ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

func newEntregaFixture() (*EntregaService, *mockEntregaRepo, *mockTurmaFinder) {
	repo := &mockEntregaRepo{entregas: map[string]*models.Entrega{}}
	atividades := &mockAtividadeFinder{atividades: map[string]*models.Atividade{
		"atv-1": {ID: "atv-1", TurmaID: "turma-1", Titulo: "Trabalho 1"},
	}}
	turmas := &mockTurmaFinder{
		turmas:      map[string]*models.Turma{"turma-1": {ID: "turma-1", Nome: "Turma A"}},
		matriculado: map[string]bool{"turma-1/aluno-1": true},
	}
	svc := NewEntregaService(repo, atividades, turmas, &mockFileStore{}, nil, nil, nil)
	return svc, repo, turmas
}

func TestEntregaServiceCreateComConteudoEntregue(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	entrega, err := svc.Create(context.Background(), "prof-1", "atv-1", CreateEntregaRequest{
		AlunoID:         "aluno-1",
		ComentarioAluno: "segue em anexo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntregaStatusEntregue, entrega.Status)
	require.NotNil(t, entrega.DataEntrega)
}

func TestEntregaServiceCreateVaziaPendente(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	entrega, err := svc.Create(context.Background(), "prof-1", "atv-1", CreateEntregaRequest{AlunoID: "aluno-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EntregaStatusPendente, entrega.Status)
	assert.Nil(t, entrega.DataEntrega)
}

func TestEntregaServiceCreateAlunoNaoMatriculado(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	_, err := svc.Create(context.Background(), "prof-1", "atv-1", CreateEntregaRequest{AlunoID: "aluno-2"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEntregaServiceCreateAtividadeDeOutroProfessor(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	_, err := svc.Create(context.Background(), "prof-1", "atv-inexistente", CreateEntregaRequest{AlunoID: "aluno-1"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEntregaServiceCreateDuplicadaConflito(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.createErr = appErrors.Clone(appErrors.ErrConflict, "entrega already exists for this atividade and aluno")

	_, err := svc.Create(context.Background(), "prof-1", "atv-1", CreateEntregaRequest{AlunoID: "aluno-1"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEntregaServiceAvaliarTransicionaAvaliado(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", AtividadeID: "atv-1", AlunoID: "aluno-1", Status: models.EntregaStatusEntregue}

	nota, err := svc.Avaliar(context.Background(), "prof-1", "ent-1", AvaliarEntregaRequest{Valor: 8.5, ComentarioProfessor: "bom trabalho"})
	require.NoError(t, err)
	assert.Equal(t, 8.5, nota.Valor)
	assert.Equal(t, models.EntregaStatusAvaliado, repo.entregas["ent-1"].Status)
	assert.Equal(t, 1, repo.upsertCalls)
}

func TestEntregaServiceAvaliarValorForaDoIntervalo(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", Status: models.EntregaStatusEntregue}

	for _, valor := range []float64{-0.5, 10.5} {
		_, err := svc.Avaliar(context.Background(), "prof-1", "ent-1", AvaliarEntregaRequest{Valor: valor})
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}

	assert.Equal(t, models.EntregaStatusEntregue, repo.entregas["ent-1"].Status)
	assert.Zero(t, repo.upsertCalls)
}

func TestEntregaServiceAvaliarSegundaVezMantemAvaliado(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", AtividadeID: "atv-1", Status: models.EntregaStatusEntregue}

	_, err := svc.Avaliar(context.Background(), "prof-1", "ent-1", AvaliarEntregaRequest{Valor: 6})
	require.NoError(t, err)
	nota, err := svc.Avaliar(context.Background(), "prof-1", "ent-1", AvaliarEntregaRequest{Valor: 9})
	require.NoError(t, err)

	assert.Equal(t, 9.0, nota.Valor)
	assert.Equal(t, models.EntregaStatusAvaliado, repo.entregas["ent-1"].Status)
}

func TestEntregaServiceMarcarAtrasada(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", Status: models.EntregaStatusPendente}

	entrega, err := svc.MarcarAtrasada(context.Background(), "prof-1", "ent-1")
	require.NoError(t, err)
	assert.Equal(t, models.EntregaStatusAtrasado, entrega.Status)

	// idempotente
	entrega, err = svc.MarcarAtrasada(context.Background(), "prof-1", "ent-1")
	require.NoError(t, err)
	assert.Equal(t, models.EntregaStatusAtrasado, entrega.Status)
}

func TestEntregaServiceMarcarAtrasadaRecusaAvaliado(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", Status: models.EntregaStatusAvaliado}

	_, err := svc.MarcarAtrasada(context.Background(), "prof-1", "ent-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, models.EntregaStatusAvaliado, repo.entregas["ent-1"].Status)
}

func TestEntregaServiceSweepAtrasadasTurmaDeOutroProfessor(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	_, err := svc.SweepAtrasadas(context.Background(), "prof-2", "turma-alheia")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEntregaServiceSweepAtrasadas(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", Status: models.EntregaStatusPendente}
	repo.entregas["ent-2"] = &models.Entrega{ID: "ent-2", Status: models.EntregaStatusAvaliado}

	changed, err := svc.SweepAtrasadas(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	assert.Equal(t, models.EntregaStatusAvaliado, repo.entregas["ent-2"].Status)
}

func TestEntregaServiceAnexarArquivoEntrega(t *testing.T) {
	svc, repo, _ := newEntregaFixture()
	repo.entregas["ent-1"] = &models.Entrega{ID: "ent-1", Status: models.EntregaStatusPendente}

	entrega, err := svc.AnexarArquivo(context.Background(), "prof-1", "ent-1", "trabalho.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EntregaStatusEntregue, entrega.Status)
	require.NotNil(t, entrega.Arquivo)
}

func TestEntregaServiceGetDeOutroProfessor(t *testing.T) {
	svc, _, _ := newEntregaFixture()

	_, err := svc.Get(context.Background(), "prof-2", "ent-inexistente")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type mockTurmaRepo struct {
	turmas     map[string]*models.Turma
	alunos     map[string][]models.Aluno
	matriculas map[string]bool
	deleted    []string
}

func (m *mockTurmaRepo) List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error) {
	var out []models.TurmaComContagens
	for _, t := range m.turmas {
		if t.ProfessorID == professorID {
			out = append(out, models.TurmaComContagens{Turma: *t})
		}
	}
	return out, len(out), nil
}

func (m *mockTurmaRepo) FindByID(ctx context.Context, id, professorID string) (*models.Turma, error) {
	t, ok := m.turmas[id]
	if !ok || t.ProfessorID != professorID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (m *mockTurmaRepo) Create(ctx context.Context, turma *models.Turma) error {
	turma.ID = "turma-new"
	m.turmas[turma.ID] = turma
	return nil
}

func (m *mockTurmaRepo) Update(ctx context.Context, turma *models.Turma) error {
	if _, ok := m.turmas[turma.ID]; !ok {
		return sql.ErrNoRows
	}
	m.turmas[turma.ID] = turma
	return nil
}

func (m *mockTurmaRepo) Delete(ctx context.Context, id, professorID string) error {
	t, ok := m.turmas[id]
	if !ok || t.ProfessorID != professorID {
		return sql.ErrNoRows
	}
	delete(m.turmas, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTurmaRepo) Matricular(ctx context.Context, turmaID, alunoID string) error {
	key := turmaID + "/" + alunoID
	if m.matriculas[key] {
		return appErrors.Clone(appErrors.ErrConflict, "aluno already matriculado in this turma")
	}
	m.matriculas[key] = true
	return nil
}

func (m *mockTurmaRepo) Desmatricular(ctx context.Context, turmaID, alunoID string) error {
	key := turmaID + "/" + alunoID
	if !m.matriculas[key] {
		return sql.ErrNoRows
	}
	delete(m.matriculas, key)
	return nil
}

func (m *mockTurmaRepo) ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error) {
	return m.alunos[turmaID], nil
}

func (m *mockTurmaRepo) Resumo(ctx context.Context, turmaID string) (*models.TurmaResumo, error) {
	return &models.TurmaResumo{TotalAlunos: len(m.alunos[turmaID]), TotalAtividades: 2}, nil
}

type mockMaterialLister struct{ materiais map[string][]models.Material }

func (m *mockMaterialLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Material, error) {
	return m.materiais[turmaID], nil
}

type mockAtividadeLister struct{ atividades map[string][]models.Atividade }

func (m *mockAtividadeLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Atividade, error) {
	return m.atividades[turmaID], nil
}

type mockAvisoLister struct{ avisos map[string][]models.Aviso }

func (m *mockAvisoLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Aviso, error) {
	return m.avisos[turmaID], nil
}

type mockAlunoFinder struct{ alunos map[string]*models.Aluno }

func (m *mockAlunoFinder) FindByIDUnscoped(ctx context.Context, id string) (*models.Aluno, error) {
	a, ok := m.alunos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func newTurmaFixture() (*TurmaService, *mockTurmaRepo) {
	repo := &mockTurmaRepo{
		turmas: map[string]*models.Turma{
			"turma-1": {ID: "turma-1", Nome: "Turma A", Ano: 2026, ProfessorID: "prof-1"},
		},
		alunos: map[string][]models.Aluno{
			"turma-1": {{ID: "aluno-1", Nome: "Ana", Matricula: "M001"}},
		},
		matriculas: map[string]bool{"turma-1/aluno-1": true},
	}
	materiais := &mockMaterialLister{materiais: map[string][]models.Material{
		"turma-1": {{ID: "mat-1", Titulo: "Apostila", TurmaID: "turma-1"}},
	}}
	atividades := &mockAtividadeLister{atividades: map[string][]models.Atividade{}}
	avisos := &mockAvisoLister{avisos: map[string][]models.Aviso{}}
	alunos := &mockAlunoFinder{alunos: map[string]*models.Aluno{
		"aluno-1": {ID: "aluno-1", Nome: "Ana", Matricula: "M001"},
		"aluno-2": {ID: "aluno-2", Nome: "Bruno", Matricula: "M002"},
	}}
	svc := NewTurmaService(repo, materiais, atividades, avisos, alunos, nil, nil)
	return svc, repo
}

func TestTurmaService_Get(t *testing.T) {
	svc, _ := newTurmaFixture()

	detalhe, err := svc.Get(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	assert.Equal(t, "Turma A", detalhe.Nome)
	assert.Len(t, detalhe.Alunos, 1)
	assert.Len(t, detalhe.Materiais, 1)
	assert.Empty(t, detalhe.Atividades)
}

func TestTurmaService_Get_OtherProfessor(t *testing.T) {
	svc, _ := newTurmaFixture()

	_, err := svc.Get(context.Background(), "prof-2", "turma-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTurmaService_Create(t *testing.T) {
	svc, repo := newTurmaFixture()

	turma, err := svc.Create(context.Background(), "prof-1", CreateTurmaRequest{Nome: "Turma B", Ano: 2026})
	require.NoError(t, err)
	assert.Equal(t, "prof-1", turma.ProfessorID)
	assert.Contains(t, repo.turmas, turma.ID)
}

func TestTurmaService_Create_InvalidPayload(t *testing.T) {
	svc, _ := newTurmaFixture()

	_, err := svc.Create(context.Background(), "prof-1", CreateTurmaRequest{Nome: "", Ano: 2026})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTurmaService_Update_OtherProfessor(t *testing.T) {
	svc, repo := newTurmaFixture()

	_, err := svc.Update(context.Background(), "prof-2", "turma-1", UpdateTurmaRequest{Nome: "Hijacked", Ano: 2026})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Turma A", repo.turmas["turma-1"].Nome)
}

func TestTurmaService_Delete(t *testing.T) {
	svc, repo := newTurmaFixture()

	err := svc.Delete(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	assert.NotContains(t, repo.turmas, "turma-1")
}

func TestTurmaService_Matricular(t *testing.T) {
	svc, repo := newTurmaFixture()

	err := svc.Matricular(context.Background(), "prof-1", "turma-1", "aluno-2")
	require.NoError(t, err)
	assert.True(t, repo.matriculas["turma-1/aluno-2"])
}

func TestTurmaService_Matricular_Duplicate(t *testing.T) {
	svc, _ := newTurmaFixture()

	err := svc.Matricular(context.Background(), "prof-1", "turma-1", "aluno-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTurmaService_Matricular_UnknownAluno(t *testing.T) {
	svc, _ := newTurmaFixture()

	err := svc.Matricular(context.Background(), "prof-1", "turma-1", "aluno-missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTurmaService_Desmatricular_NotEnrolled(t *testing.T) {
	svc, _ := newTurmaFixture()

	err := svc.Desmatricular(context.Background(), "prof-1", "turma-1", "aluno-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTurmaService_Resumo(t *testing.T) {
	svc, _ := newTurmaFixture()

	resumo, err := svc.Resumo(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resumo.TotalAlunos)
	assert.Equal(t, 2, resumo.TotalAtividades)
}

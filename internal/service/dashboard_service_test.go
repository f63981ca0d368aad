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

type mockDashboardTurmaRepo struct {
	turmas map[string]*models.Turma
	lista  []models.TurmaComContagens
	alunos map[string][]models.Aluno
}

func (m *mockDashboardTurmaRepo) List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error) {
	return m.lista, len(m.lista), nil
}

func (m *mockDashboardTurmaRepo) FindByID(ctx context.Context, id, professorID string) (*models.Turma, error) {
	if t, ok := m.turmas[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDashboardTurmaRepo) ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error) {
	return m.alunos[turmaID], nil
}

type mockDashboardAtividadeRepo struct {
	recentes []models.Atividade
}

func (m *mockDashboardAtividadeRepo) RecentesByProfessor(ctx context.Context, professorID string, limit int) ([]models.Atividade, error) {
	if len(m.recentes) > limit {
		return m.recentes[:limit], nil
	}
	return m.recentes, nil
}

type mockDashboardEntregaRepo struct {
	pendentes int
	notas     map[string][]models.BoletimNota
}

func (m *mockDashboardEntregaRepo) CountPendentesByProfessor(ctx context.Context, professorID string) (int, error) {
	return m.pendentes, nil
}

func (m *mockDashboardEntregaRepo) BoletimNotas(ctx context.Context, turmaID string) ([]models.BoletimNota, error) {
	return m.notas[turmaID], nil
}

func newDashboardFixture() (*DashboardService, *mockDashboardTurmaRepo, *mockDashboardEntregaRepo) {
	turmas := &mockDashboardTurmaRepo{
		turmas: map[string]*models.Turma{"turma-1": {ID: "turma-1", Nome: "Turma A", Ano: 2026}},
		lista: []models.TurmaComContagens{
			{Turma: models.Turma{ID: "turma-1", Nome: "Turma A"}, TotalAlunos: 2, TotalAtividades: 1},
		},
		alunos: map[string][]models.Aluno{
			"turma-1": {
				{ID: "aluno-1", Nome: "Ana", Matricula: "M001"},
				{ID: "aluno-2", Nome: "Bruno", Matricula: "M002"},
			},
		},
	}
	entregas := &mockDashboardEntregaRepo{pendentes: 3, notas: map[string][]models.BoletimNota{}}
	atividades := &mockDashboardAtividadeRepo{recentes: []models.Atividade{{ID: "atv-1", Titulo: "Trabalho 1"}}}
	svc := NewDashboardService(turmas, atividades, entregas, nil, 0, nil)
	return svc, turmas, entregas
}

func TestDashboardServiceResumo(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	resumo, err := svc.Resumo(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Len(t, resumo.Turmas, 1)
	assert.Len(t, resumo.AtividadesRecentes, 1)
	assert.Equal(t, 3, resumo.EntregasPendentes)
	assert.Equal(t, 1, resumo.TotalTurmas)
}

func TestDashboardServiceBoletimMediaArredondada(t *testing.T) {
	svc, _, entregas := newDashboardFixture()
	entregas.notas["turma-1"] = []models.BoletimNota{
		{AlunoID: "aluno-1", AtividadeTitulo: "Trabalho 1", Valor: 7},
		{AlunoID: "aluno-1", AtividadeTitulo: "Trabalho 2", Valor: 9},
	}

	boletim, err := svc.Boletim(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	require.Len(t, boletim.Linhas, 2)

	// linhas seguem a ordem de nome do roster
	assert.Equal(t, "Ana", boletim.Linhas[0].Aluno.Nome)
	assert.Equal(t, 8.00, boletim.Linhas[0].Media)
	assert.Len(t, boletim.Linhas[0].Notas, 2)

	// aluno sem notas entra com media zero
	assert.Equal(t, "Bruno", boletim.Linhas[1].Aluno.Nome)
	assert.Equal(t, 0.00, boletim.Linhas[1].Media)
	assert.Empty(t, boletim.Linhas[1].Notas)
}

func TestDashboardServiceBoletimArredondaDuasCasas(t *testing.T) {
	svc, _, entregas := newDashboardFixture()
	entregas.notas["turma-1"] = []models.BoletimNota{
		{AlunoID: "aluno-1", Valor: 7},
		{AlunoID: "aluno-1", Valor: 8},
		{AlunoID: "aluno-1", Valor: 8},
	}

	boletim, err := svc.Boletim(context.Background(), "prof-1", "turma-1")
	require.NoError(t, err)
	assert.Equal(t, 7.67, boletim.Linhas[0].Media)
}

func TestDashboardServiceBoletimTurmaDeOutroProfessor(t *testing.T) {
	svc, _, _ := newDashboardFixture()

	_, err := svc.Boletim(context.Background(), "prof-2", "turma-alheia")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

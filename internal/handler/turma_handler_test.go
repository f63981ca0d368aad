package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escola-dev/escola-api/internal/middleware"
	"github.com/escola-dev/escola-api/internal/models"
	"github.com/escola-dev/escola-api/internal/service"
)

type fakeTurmaRepo struct {
	turmas map[string]*models.Turma
}

func (f *fakeTurmaRepo) List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error) {
	var out []models.TurmaComContagens
	for _, t := range f.turmas {
		if t.ProfessorID == professorID {
			out = append(out, models.TurmaComContagens{Turma: *t})
		}
	}
	return out, len(out), nil
}

func (f *fakeTurmaRepo) FindByID(ctx context.Context, id, professorID string) (*models.Turma, error) {
	t, ok := f.turmas[id]
	if !ok || t.ProfessorID != professorID {
		return nil, sql.ErrNoRows
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTurmaRepo) Create(ctx context.Context, turma *models.Turma) error {
	turma.ID = "turma-new"
	f.turmas[turma.ID] = turma
	return nil
}

func (f *fakeTurmaRepo) Update(ctx context.Context, turma *models.Turma) error { return nil }

func (f *fakeTurmaRepo) Delete(ctx context.Context, id, professorID string) error {
	if _, err := f.FindByID(ctx, id, professorID); err != nil {
		return err
	}
	delete(f.turmas, id)
	return nil
}

func (f *fakeTurmaRepo) Matricular(ctx context.Context, turmaID, alunoID string) error {
	return nil
}

func (f *fakeTurmaRepo) Desmatricular(ctx context.Context, turmaID, alunoID string) error {
	return nil
}

func (f *fakeTurmaRepo) ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error) {
	return nil, nil
}

func (f *fakeTurmaRepo) Resumo(ctx context.Context, turmaID string) (*models.TurmaResumo, error) {
	return &models.TurmaResumo{}, nil
}

type fakeMaterialLister struct{}

func (fakeMaterialLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Material, error) {
	return nil, nil
}

type fakeAtividadeLister struct{}

func (fakeAtividadeLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Atividade, error) {
	return nil, nil
}

type fakeAvisoLister struct{}

func (fakeAvisoLister) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Aviso, error) {
	return nil, nil
}

type fakeAlunoFinder struct{}

func (fakeAlunoFinder) FindByIDUnscoped(ctx context.Context, id string) (*models.Aluno, error) {
	return nil, sql.ErrNoRows
}

func newTurmaHandler() (*TurmaHandler, *fakeTurmaRepo) {
	repo := &fakeTurmaRepo{turmas: map[string]*models.Turma{
		"turma-1": {ID: "turma-1", Nome: "Turma A", Ano: 2026, ProfessorID: "prof-1"},
	}}
	svc := service.NewTurmaService(repo, fakeMaterialLister{}, fakeAtividadeLister{}, fakeAvisoLister{}, fakeAlunoFinder{}, nil, nil)
	return NewTurmaHandler(svc), repo
}

type turmaEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func TestTurmaHandlerGetRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTurmaHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/turmas/turma-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "turma-1"}}

	handler.Get(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTurmaHandlerGetSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTurmaHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/turmas/turma-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "turma-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prof-1"})

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope turmaEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Turma A", envelope.Data["nome"])
}

func TestTurmaHandlerGetOtherProfessor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTurmaHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/turmas/turma-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "turma-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prof-2"})

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTurmaHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newTurmaHandler()

	body, _ := json.Marshal(map[string]interface{}{"nome": "Turma B", "ano": 2026})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/turmas", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prof-1"})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "prof-1", repo.turmas["turma-new"].ProfessorID)
}

func TestTurmaHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newTurmaHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/turmas", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prof-1"})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

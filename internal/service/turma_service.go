package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type turmaRepository interface {
	List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
	Create(ctx context.Context, turma *models.Turma) error
	Update(ctx context.Context, turma *models.Turma) error
	Delete(ctx context.Context, id, professorID string) error
	Matricular(ctx context.Context, turmaID, alunoID string) error
	Desmatricular(ctx context.Context, turmaID, alunoID string) error
	ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error)
	Resumo(ctx context.Context, turmaID string) (*models.TurmaResumo, error)
}

type turmaMaterialLister interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Material, error)
}

type turmaAtividadeLister interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Atividade, error)
}

type turmaAvisoLister interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Aviso, error)
}

type alunoCandidateFinder interface {
	FindByIDUnscoped(ctx context.Context, id string) (*models.Aluno, error)
}

// CreateTurmaRequest captures turma creation payload. The owner always comes
// from the authenticated professor, never from the payload.
type CreateTurmaRequest struct {
	Nome      string `json:"nome" validate:"required,max=100"`
	Ano       int    `json:"ano" validate:"required,gte=1900"`
	Descricao string `json:"descricao"`
}

// UpdateTurmaRequest modifies turma fields. Ownership never transfers.
type UpdateTurmaRequest struct {
	Nome      string `json:"nome" validate:"required,max=100"`
	Ano       int    `json:"ano" validate:"required,gte=1900"`
	Descricao string `json:"descricao"`
}

// TurmaService coordinates turma operations for the authenticated professor.
type TurmaService struct {
	repo       turmaRepository
	materiais  turmaMaterialLister
	atividades turmaAtividadeLister
	avisos     turmaAvisoLister
	alunos     alunoCandidateFinder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTurmaService constructs TurmaService.
func NewTurmaService(repo turmaRepository, materiais turmaMaterialLister, atividades turmaAtividadeLister, avisos turmaAvisoLister, alunos alunoCandidateFinder, validate *validator.Validate, logger *zap.Logger) *TurmaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurmaService{repo: repo, materiais: materiais, atividades: atividades, avisos: avisos, alunos: alunos, validator: validate, logger: logger}
}

// List returns the professor's turmas with pagination metadata.
func (s *TurmaService) List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, *models.Pagination, error) {
	turmas, total, err := s.repo.List(ctx, professorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turmas")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return turmas, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the turma page: roster plus the five latest child records.
func (s *TurmaService) Get(ctx context.Context, professorID, id string) (*models.TurmaDetalhe, error) {
	turma, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	detalhe := &models.TurmaDetalhe{Turma: *turma}

	if detalhe.Alunos, err = s.repo.ListAlunos(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turma alunos")
	}
	if detalhe.Materiais, err = s.materiais.ListByTurma(ctx, id, 5); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turma materiais")
	}
	if detalhe.Atividades, err = s.atividades.ListByTurma(ctx, id, 5); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turma atividades")
	}
	if detalhe.Avisos, err = s.avisos.ListByTurma(ctx, id, 5); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turma avisos")
	}
	return detalhe, nil
}

// Create adds a new turma owned by the professor.
func (s *TurmaService) Create(ctx context.Context, professorID string, req CreateTurmaRequest) (*models.Turma, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid turma payload")
	}

	turma := &models.Turma{
		Nome:        req.Nome,
		Ano:         req.Ano,
		Descricao:   req.Descricao,
		ProfessorID: professorID,
	}
	if err := s.repo.Create(ctx, turma); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create turma")
	}
	return turma, nil
}

// Update modifies a turma owned by the professor.
func (s *TurmaService) Update(ctx context.Context, professorID, id string, req UpdateTurmaRequest) (*models.Turma, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid turma payload")
	}

	turma, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	turma.Nome = req.Nome
	turma.Ano = req.Ano
	turma.Descricao = req.Descricao

	if err := s.repo.Update(ctx, turma); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update turma")
	}
	return turma, nil
}

// Delete removes a turma and all of its child records.
func (s *TurmaService) Delete(ctx context.Context, professorID, id string) error {
	if err := s.repo.Delete(ctx, id, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete turma")
	}
	return nil
}

// Matricular enrolls an existing aluno into one of the professor's turmas.
func (s *TurmaService) Matricular(ctx context.Context, professorID, turmaID, alunoID string) error {
	if _, err := s.repo.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	if _, err := s.alunos.FindByIDUnscoped(ctx, alunoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "aluno not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aluno")
	}
	if err := s.repo.Matricular(ctx, turmaID, alunoID); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

// Desmatricular removes an aluno from one of the professor's turmas.
func (s *TurmaService) Desmatricular(ctx context.Context, professorID, turmaID, alunoID string) error {
	if _, err := s.repo.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	if err := s.repo.Desmatricular(ctx, turmaID, alunoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "matricula not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove matricula")
	}
	return nil
}

// Resumo returns the live student/activity counts for an owned turma.
func (s *TurmaService) Resumo(ctx context.Context, professorID, turmaID string) (*models.TurmaResumo, error) {
	if _, err := s.repo.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	resumo, err := s.repo.Resumo(ctx, turmaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute turma resumo")
	}
	return resumo, nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type alunoRepository interface {
	List(ctx context.Context, professorID string, filter models.AlunoFilter) ([]models.Aluno, int, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Aluno, error)
	Create(ctx context.Context, aluno *models.Aluno) error
	Update(ctx context.Context, aluno *models.Aluno) error
	Delete(ctx context.Context, id string) error
}

type alunoEntregaLister interface {
	ListByAluno(ctx context.Context, alunoID, professorID string) ([]models.EntregaDetalhe, error)
}

// CreateAlunoRequest captures aluno registration payload.
type CreateAlunoRequest struct {
	Nome           string     `json:"nome" validate:"required,max=200"`
	Email          string     `json:"email" validate:"required,email"`
	Matricula      string     `json:"matricula" validate:"required,max=20"`
	DataNascimento *time.Time `json:"data_nascimento"`
}

// UpdateAlunoRequest modifies aluno fields.
type UpdateAlunoRequest struct {
	Nome           string     `json:"nome" validate:"required,max=200"`
	Email          string     `json:"email" validate:"required,email"`
	Matricula      string     `json:"matricula" validate:"required,max=20"`
	DataNascimento *time.Time `json:"data_nascimento"`
}

// AlunoService coordinates aluno operations. Reads are scoped to alunos
// enrolled in the professor's turmas.
type AlunoService struct {
	repo      alunoRepository
	entregas  alunoEntregaLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAlunoService constructs AlunoService.
func NewAlunoService(repo alunoRepository, entregas alunoEntregaLister, validate *validator.Validate, logger *zap.Logger) *AlunoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlunoService{repo: repo, entregas: entregas, validator: validate, logger: logger}
}

// List returns the alunos visible to the professor.
func (s *AlunoService) List(ctx context.Context, professorID string, filter models.AlunoFilter) ([]models.Aluno, *models.Pagination, error) {
	alunos, total, err := s.repo.List(ctx, professorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alunos")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return alunos, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns the aluno page with submissions across the professor's turmas.
func (s *AlunoService) Get(ctx context.Context, professorID, id string) (*models.AlunoDetalhe, error) {
	aluno, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aluno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aluno")
	}

	entregas, err := s.entregas.ListByAluno(ctx, id, professorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list aluno entregas")
	}
	return &models.AlunoDetalhe{Aluno: *aluno, Entregas: entregas}, nil
}

// Create registers a new aluno. Uniqueness of email and matricula is enforced
// by the store and surfaces as a conflict.
func (s *AlunoService) Create(ctx context.Context, req CreateAlunoRequest) (*models.Aluno, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aluno payload")
	}

	aluno := &models.Aluno{
		Nome:           req.Nome,
		Email:          req.Email,
		Matricula:      req.Matricula,
		DataNascimento: req.DataNascimento,
	}
	if err := s.repo.Create(ctx, aluno); err != nil {
		return nil, appErrors.FromError(err)
	}
	return aluno, nil
}

// Update modifies an aluno visible to the professor.
func (s *AlunoService) Update(ctx context.Context, professorID, id string, req UpdateAlunoRequest) (*models.Aluno, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aluno payload")
	}

	aluno, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aluno not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aluno")
	}

	aluno.Nome = req.Nome
	aluno.Email = req.Email
	aluno.Matricula = req.Matricula
	aluno.DataNascimento = req.DataNascimento

	if err := s.repo.Update(ctx, aluno); err != nil {
		return nil, appErrors.FromError(err)
	}
	return aluno, nil
}

// Delete removes an aluno visible to the professor, with their entregas.
func (s *AlunoService) Delete(ctx context.Context, professorID, id string) error {
	if _, err := s.repo.FindByID(ctx, id, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "aluno not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aluno")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete aluno")
	}
	return nil
}

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

type avisoRepository interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Aviso, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Aviso, error)
	Create(ctx context.Context, aviso *models.Aviso) error
	Update(ctx context.Context, aviso *models.Aviso) error
	Delete(ctx context.Context, id string) error
}

type avisoTurmaFinder interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
}

// CreateAvisoRequest posts an announcement to a turma.
type CreateAvisoRequest struct {
	Titulo     string `json:"titulo" validate:"required,max=200"`
	Conteudo   string `json:"conteudo" validate:"required"`
	Importante bool   `json:"importante"`
}

// UpdateAvisoRequest edits an announcement.
type UpdateAvisoRequest struct {
	Titulo     string `json:"titulo" validate:"required,max=200"`
	Conteudo   string `json:"conteudo" validate:"required"`
	Importante bool   `json:"importante"`
}

// AvisoService manages turma announcements.
type AvisoService struct {
	repo      avisoRepository
	turmas    avisoTurmaFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvisoService constructs AvisoService.
func NewAvisoService(repo avisoRepository, turmas avisoTurmaFinder, validate *validator.Validate, logger *zap.Logger) *AvisoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvisoService{repo: repo, turmas: turmas, validator: validate, logger: logger}
}

// ListByTurma returns the turma's avisos, important ones first.
func (s *AvisoService) ListByTurma(ctx context.Context, professorID, turmaID string) ([]models.Aviso, error) {
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	avisos, err := s.repo.ListByTurma(ctx, turmaID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list avisos")
	}
	return avisos, nil
}

// Get returns a single owned aviso.
func (s *AvisoService) Get(ctx context.Context, professorID, id string) (*models.Aviso, error) {
	aviso, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aviso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aviso")
	}
	return aviso, nil
}

// Create posts an aviso to an owned turma.
func (s *AvisoService) Create(ctx context.Context, professorID, turmaID string, req CreateAvisoRequest) (*models.Aviso, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aviso payload")
	}
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	aviso := &models.Aviso{
		Titulo:     req.Titulo,
		Conteudo:   req.Conteudo,
		TurmaID:    turmaID,
		Importante: req.Importante,
	}
	if err := s.repo.Create(ctx, aviso); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create aviso")
	}
	return aviso, nil
}

// Update edits an owned aviso.
func (s *AvisoService) Update(ctx context.Context, professorID, id string, req UpdateAvisoRequest) (*models.Aviso, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid aviso payload")
	}
	aviso, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aviso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aviso")
	}

	aviso.Titulo = req.Titulo
	aviso.Conteudo = req.Conteudo
	aviso.Importante = req.Importante
	if err := s.repo.Update(ctx, aviso); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "aviso not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update aviso")
	}
	return aviso, nil
}

// Delete removes an owned aviso.
func (s *AvisoService) Delete(ctx context.Context, professorID, id string) error {
	if _, err := s.repo.FindByID(ctx, id, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "aviso not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load aviso")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete aviso")
	}
	return nil
}

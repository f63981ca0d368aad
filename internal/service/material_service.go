package service

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type materialRepository interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Material, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	SetArquivo(ctx context.Context, id, ref string) error
	Delete(ctx context.Context, id string) error
}

type materialTurmaFinder interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
}

// fileStore abstracts the attachment storage used by material, atividade and
// entrega services. Only the returned reference is persisted.
type fileStore interface {
	SaveUpload(subdir, originalName string, r io.Reader) (string, error)
	Delete(ref string) error
}

// CreateMaterialRequest captures material creation payload. The turma comes
// from the resolved path context, never from the payload.
type CreateMaterialRequest struct {
	Titulo    string              `json:"titulo" validate:"required,max=200"`
	Descricao string              `json:"descricao" validate:"required"`
	Tipo      models.MaterialTipo `json:"tipo" validate:"required,oneof=PDF VIDEO LINK DOCUMENTO"`
	Link      string              `json:"link" validate:"omitempty,url"`
}

// UpdateMaterialRequest modifies material fields.
type UpdateMaterialRequest struct {
	Titulo    string              `json:"titulo" validate:"required,max=200"`
	Descricao string              `json:"descricao" validate:"required"`
	Tipo      models.MaterialTipo `json:"tipo" validate:"required,oneof=PDF VIDEO LINK DOCUMENTO"`
	Link      string              `json:"link" validate:"omitempty,url"`
}

// MaterialService coordinates learning-material operations.
type MaterialService struct {
	repo      materialRepository
	turmas    materialTurmaFinder
	files     fileStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs MaterialService.
func NewMaterialService(repo materialRepository, turmas materialTurmaFinder, files fileStore, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, turmas: turmas, files: files, validator: validate, logger: logger}
}

// ListByTurma returns the materials of an owned turma, newest first.
func (s *MaterialService) ListByTurma(ctx context.Context, professorID, turmaID string) ([]models.Material, error) {
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	materiais, err := s.repo.ListByTurma(ctx, turmaID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materiais")
	}
	return materiais, nil
}

// Get returns one material of an owned turma.
func (s *MaterialService) Get(ctx context.Context, professorID, id string) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	return material, nil
}

// Create adds a material under an owned turma.
func (s *MaterialService) Create(ctx context.Context, professorID, turmaID string, req CreateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	material := &models.Material{
		Titulo:    req.Titulo,
		Descricao: req.Descricao,
		Tipo:      req.Tipo,
		Link:      req.Link,
		TurmaID:   turmaID,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	return material, nil
}

// Update modifies a material of an owned turma.
func (s *MaterialService) Update(ctx context.Context, professorID, id string, req UpdateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}

	material, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	material.Titulo = req.Titulo
	material.Descricao = req.Descricao
	material.Tipo = req.Tipo
	material.Link = req.Link

	if err := s.repo.Update(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
	}
	return material, nil
}

// AnexarArquivo stores an uploaded file and records its reference.
func (s *MaterialService) AnexarArquivo(ctx context.Context, professorID, id, filename string, r io.Reader) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}

	ref, err := s.files.SaveUpload("materiais", filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store material arquivo")
	}
	if err := s.repo.SetArquivo(ctx, id, ref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save material arquivo reference")
	}
	material.Arquivo = &ref
	return material, nil
}

// Delete removes a material of an owned turma. Materials are leaves.
func (s *MaterialService) Delete(ctx context.Context, professorID, id string) error {
	material, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	if material.Arquivo != nil && s.files != nil {
		if err := s.files.Delete(*material.Arquivo); err != nil {
			s.logger.Warn("failed to remove material arquivo", zap.String("ref", *material.Arquivo), zap.Error(err))
		}
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type atividadeRepository interface {
	ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Atividade, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Atividade, error)
	Create(ctx context.Context, atividade *models.Atividade) error
	Update(ctx context.Context, atividade *models.Atividade) error
	SetAnexo(ctx context.Context, id, ref string) error
	Delete(ctx context.Context, id string) error
}

type atividadeTurmaFinder interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
}

type atividadeEntregaLister interface {
	ListByAtividade(ctx context.Context, atividadeID string) ([]models.EntregaDetalhe, error)
}

// CreateAtividadeRequest captures atividade creation payload. The turma comes
// from the resolved path context.
type CreateAtividadeRequest struct {
	Titulo      string    `json:"titulo" validate:"required,max=200"`
	Descricao   string    `json:"descricao" validate:"required"`
	DataEntrega time.Time `json:"data_entrega" validate:"required"`
	ValorPontos float64   `json:"valor_pontos" validate:"gt=0"`
}

// UpdateAtividadeRequest modifies atividade fields.
type UpdateAtividadeRequest struct {
	Titulo      string    `json:"titulo" validate:"required,max=200"`
	Descricao   string    `json:"descricao" validate:"required"`
	DataEntrega time.Time `json:"data_entrega" validate:"required"`
	ValorPontos float64   `json:"valor_pontos" validate:"gt=0"`
}

// AtividadeService coordinates assignment operations.
type AtividadeService struct {
	repo      atividadeRepository
	turmas    atividadeTurmaFinder
	entregas  atividadeEntregaLister
	files     fileStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAtividadeService constructs AtividadeService.
func NewAtividadeService(repo atividadeRepository, turmas atividadeTurmaFinder, entregas atividadeEntregaLister, files fileStore, validate *validator.Validate, logger *zap.Logger) *AtividadeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AtividadeService{repo: repo, turmas: turmas, entregas: entregas, files: files, validator: validate, logger: logger}
}

// ListByTurma returns the atividades of an owned turma.
func (s *AtividadeService) ListByTurma(ctx context.Context, professorID, turmaID string) ([]models.Atividade, error) {
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	atividades, err := s.repo.ListByTurma(ctx, turmaID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list atividades")
	}
	return atividades, nil
}

// Get returns the atividade page with its submissions.
func (s *AtividadeService) Get(ctx context.Context, professorID, id string) (*models.AtividadeDetalhe, error) {
	atividade, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "atividade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load atividade")
	}

	entregas, err := s.entregas.ListByAtividade(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list atividade entregas")
	}
	return &models.AtividadeDetalhe{Atividade: *atividade, Entregas: entregas}, nil
}

// Create adds an atividade under an owned turma.
func (s *AtividadeService) Create(ctx context.Context, professorID, turmaID string, req CreateAtividadeRequest) (*models.Atividade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid atividade payload")
	}
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	atividade := &models.Atividade{
		Titulo:      req.Titulo,
		Descricao:   req.Descricao,
		TurmaID:     turmaID,
		DataEntrega: req.DataEntrega,
		ValorPontos: req.ValorPontos,
	}
	if err := s.repo.Create(ctx, atividade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create atividade")
	}
	return atividade, nil
}

// Update modifies an atividade of an owned turma.
func (s *AtividadeService) Update(ctx context.Context, professorID, id string, req UpdateAtividadeRequest) (*models.Atividade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid atividade payload")
	}

	atividade, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "atividade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load atividade")
	}

	atividade.Titulo = req.Titulo
	atividade.Descricao = req.Descricao
	atividade.DataEntrega = req.DataEntrega
	atividade.ValorPontos = req.ValorPontos

	if err := s.repo.Update(ctx, atividade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update atividade")
	}
	return atividade, nil
}

// AnexarArquivo stores an uploaded attachment and records its reference.
func (s *AtividadeService) AnexarArquivo(ctx context.Context, professorID, id, filename string, r io.Reader) (*models.Atividade, error) {
	atividade, err := s.repo.FindByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "atividade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load atividade")
	}

	ref, err := s.files.SaveUpload("atividades", filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store atividade anexo")
	}
	if err := s.repo.SetAnexo(ctx, id, ref); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save atividade anexo reference")
	}
	atividade.ArquivoAnexo = &ref
	return atividade, nil
}

// Delete removes the atividade and, transitively, its entregas and notas.
func (s *AtividadeService) Delete(ctx context.Context, professorID, id string) error {
	if _, err := s.repo.FindByID(ctx, id, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "atividade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load atividade")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete atividade")
	}
	return nil
}

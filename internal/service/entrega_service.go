package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type entregaRepository interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Entrega, error)
	FindDetalheByID(ctx context.Context, id, professorID string) (*models.EntregaDetalhe, error)
	Create(ctx context.Context, entrega *models.Entrega) error
	UpdateStatus(ctx context.Context, id string, status models.EntregaStatus) error
	Delete(ctx context.Context, id string) error
	SetArquivo(ctx context.Context, id, ref string, submittedAt time.Time) error
	SweepAtrasadas(ctx context.Context, turmaID string, now time.Time) (int64, error)
	FindNotaByEntrega(ctx context.Context, entregaID string) (*models.Nota, error)
	UpsertNota(ctx context.Context, nota *models.Nota) error
}

type entregaAtividadeFinder interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Atividade, error)
}

type entregaTurmaFinder interface {
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
	IsAlunoMatriculado(ctx context.Context, turmaID, alunoID string) (bool, error)
}

// CreateEntregaRequest registers a submission for an aluno against the
// atividade resolved from the path. A submission with content starts as
// ENTREGUE, an empty placeholder starts as PENDENTE.
type CreateEntregaRequest struct {
	AlunoID         string `json:"aluno_id" validate:"required"`
	ComentarioAluno string `json:"comentario_aluno"`
	Entregue        bool   `json:"entregue"`
}

// AvaliarEntregaRequest attaches or updates the nota for a submission.
type AvaliarEntregaRequest struct {
	Valor               float64 `json:"valor" validate:"gte=0,lte=10"`
	ComentarioProfessor string  `json:"comentario_professor"`
}

// EntregaService manages the submission lifecycle:
// PENDENTE -> ENTREGUE -> AVALIADO, with ATRASADO set explicitly.
type EntregaService struct {
	repo       entregaRepository
	atividades entregaAtividadeFinder
	turmas     entregaTurmaFinder
	files      fileStore
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewEntregaService constructs EntregaService. cache may be nil.
func NewEntregaService(repo entregaRepository, atividades entregaAtividadeFinder, turmas entregaTurmaFinder, files fileStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EntregaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntregaService{repo: repo, atividades: atividades, turmas: turmas, files: files, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Get returns the joined entrega view for an owned atividade.
func (s *EntregaService) Get(ctx context.Context, professorID, id string) (*models.EntregaDetalhe, error) {
	detalhe, err := s.repo.FindDetalheByID(ctx, id, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}
	return detalhe, nil
}

// Create registers a submission under an owned atividade. The aluno must be
// enrolled in the atividade's turma; the (atividade, aluno) pair is unique.
func (s *EntregaService) Create(ctx context.Context, professorID, atividadeID string, req CreateEntregaRequest) (*models.Entrega, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entrega payload")
	}

	atividade, err := s.atividades.FindByID(ctx, atividadeID, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "atividade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load atividade")
	}

	matriculado, err := s.turmas.IsAlunoMatriculado(ctx, atividade.TurmaID, req.AlunoID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matricula")
	}
	if !matriculado {
		return nil, appErrors.Clone(appErrors.ErrValidation, "aluno is not enrolled in the atividade's turma")
	}

	entrega := &models.Entrega{
		AtividadeID:     atividadeID,
		AlunoID:         req.AlunoID,
		ComentarioAluno: req.ComentarioAluno,
		Status:          models.EntregaStatusPendente,
	}
	if req.Entregue || req.ComentarioAluno != "" {
		entrega.Status = models.EntregaStatusEntregue
		submittedAt := s.now().UTC()
		entrega.DataEntrega = &submittedAt
	}

	if err := s.repo.Create(ctx, entrega); err != nil {
		return nil, appErrors.FromError(err)
	}
	return entrega, nil
}

// Avaliar attaches or updates the nota and transitions the entrega to
// AVALIADO. An out-of-range valor is rejected before any state changes.
func (s *EntregaService) Avaliar(ctx context.Context, professorID, entregaID string, req AvaliarEntregaRequest) (*models.Nota, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "nota valor must be between 0 and 10")
	}

	entrega, err := s.repo.FindByID(ctx, entregaID, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}

	nota := &models.Nota{
		EntregaID:           entrega.ID,
		Valor:               req.Valor,
		ComentarioProfessor: req.ComentarioProfessor,
		DataAvaliacao:       s.now().UTC(),
	}
	if err := s.repo.UpsertNota(ctx, nota); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save nota")
	}

	if s.cache.Enabled() {
		if atividade, err := s.atividades.FindByID(ctx, entrega.AtividadeID, professorID); err == nil {
			_ = s.cache.Invalidate(ctx, fmt.Sprintf("boletim:%s", atividade.TurmaID))
		}
	}
	return nota, nil
}

// Nota returns the grade attached to an owned entrega.
func (s *EntregaService) Nota(ctx context.Context, professorID, entregaID string) (*models.Nota, error) {
	if _, err := s.repo.FindByID(ctx, entregaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}
	nota, err := s.repo.FindNotaByEntrega(ctx, entregaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "nota not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nota")
	}
	return nota, nil
}

// MarcarAtrasada explicitly flags a still-open entrega as ATRASADO.
// A graded entrega never leaves AVALIADO.
func (s *EntregaService) MarcarAtrasada(ctx context.Context, professorID, entregaID string) (*models.Entrega, error) {
	entrega, err := s.repo.FindByID(ctx, entregaID, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}

	if entrega.Status == models.EntregaStatusAvaliado {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entrega already avaliada")
	}
	if entrega.Status == models.EntregaStatusAtrasado {
		return entrega, nil
	}

	if err := s.repo.UpdateStatus(ctx, entregaID, models.EntregaStatusAtrasado); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entrega status")
	}
	entrega.Status = models.EntregaStatusAtrasado
	return entrega, nil
}

// SweepAtrasadas bulk-marks pending entregas of overdue atividades in an
// owned turma. Returns how many entregas changed.
func (s *EntregaService) SweepAtrasadas(ctx context.Context, professorID, turmaID string) (int64, error) {
	if _, err := s.turmas.FindByID(ctx, turmaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}
	changed, err := s.repo.SweepAtrasadas(ctx, turmaID, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep entregas")
	}
	return changed, nil
}

// AnexarArquivo stores a submission file and stamps the turn-in time. A
// pending entrega becomes ENTREGUE.
func (s *EntregaService) AnexarArquivo(ctx context.Context, professorID, entregaID, filename string, r io.Reader) (*models.Entrega, error) {
	if _, err := s.repo.FindByID(ctx, entregaID, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}

	ref, err := s.files.SaveUpload("entregas", filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store entrega arquivo")
	}
	if err := s.repo.SetArquivo(ctx, entregaID, ref, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save entrega arquivo reference")
	}

	entrega, err := s.repo.FindByID(ctx, entregaID, professorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload entrega")
	}
	return entrega, nil
}

// Delete removes the entrega and its nota.
func (s *EntregaService) Delete(ctx context.Context, professorID, id string) error {
	if _, err := s.repo.FindByID(ctx, id, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "entrega not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entrega")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete entrega")
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

type dashboardTurmaRepo interface {
	List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error)
	FindByID(ctx context.Context, id, professorID string) (*models.Turma, error)
	ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error)
}

type dashboardAtividadeRepo interface {
	RecentesByProfessor(ctx context.Context, professorID string, limit int) ([]models.Atividade, error)
}

type dashboardEntregaRepo interface {
	CountPendentesByProfessor(ctx context.Context, professorID string) (int, error)
	BoletimNotas(ctx context.Context, turmaID string) ([]models.BoletimNota, error)
}

const dashboardRecentesLimit = 5

// DashboardService builds the derived read models: the professor landing
// page and the boletim grade report.
type DashboardService struct {
	turmas     dashboardTurmaRepo
	atividades dashboardAtividadeRepo
	entregas   dashboardEntregaRepo
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs DashboardService. cache may be nil, in
// which case boletins are always computed from the database.
func NewDashboardService(turmas dashboardTurmaRepo, atividades dashboardAtividadeRepo, entregas dashboardEntregaRepo, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{turmas: turmas, atividades: atividades, entregas: entregas, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Resumo assembles the landing-page payload for a professor.
func (s *DashboardService) Resumo(ctx context.Context, professorID string) (*models.DashboardResumo, error) {
	turmas, total, err := s.turmas.List(ctx, professorID, models.TurmaFilter{Page: 1, PageSize: dashboardRecentesLimit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list turmas")
	}

	recentes, err := s.atividades.RecentesByProfessor(ctx, professorID, dashboardRecentesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent atividades")
	}

	pendentes, err := s.entregas.CountPendentesByProfessor(ctx, professorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending entregas")
	}

	return &models.DashboardResumo{
		Turmas:             turmas,
		AtividadesRecentes: recentes,
		EntregasPendentes:  pendentes,
		TotalTurmas:        total,
	}, nil
}

// Boletim builds the per-turma grade report: one row per enrolled aluno in
// nome order, with the mean of that aluno's notas rounded to two decimals.
// Alunos with no notas get 0.00.
func (s *DashboardService) Boletim(ctx context.Context, professorID, turmaID string) (*models.Boletim, error) {
	turma, err := s.turmas.FindByID(ctx, turmaID, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "turma not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load turma")
	}

	cacheKey := fmt.Sprintf("boletim:%s", turmaID)
	if s.cache.Enabled() {
		var cached models.Boletim
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	alunos, err := s.turmas.ListAlunos(ctx, turmaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alunos")
	}
	notas, err := s.entregas.BoletimNotas(ctx, turmaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notas")
	}

	porAluno := make(map[string][]models.BoletimNota, len(alunos))
	for _, n := range notas {
		porAluno[n.AlunoID] = append(porAluno[n.AlunoID], n)
	}

	linhas := make([]models.BoletimLinha, 0, len(alunos))
	for _, aluno := range alunos {
		entries := porAluno[aluno.ID]
		linhas = append(linhas, models.BoletimLinha{
			Aluno: aluno,
			Notas: entries,
			Media: mediaNotas(entries),
		})
	}

	boletim := &models.Boletim{Turma: *turma, Linhas: linhas}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, boletim, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache boletim", zap.String("turma_id", turmaID), zap.Error(err))
		}
	}
	return boletim, nil
}

func mediaNotas(notas []models.BoletimNota) float64 {
	if len(notas) == 0 {
		return 0
	}
	var sum float64
	for _, n := range notas {
		sum += n.Valor
	}
	return math.Round(sum/float64(len(notas))*100) / 100
}

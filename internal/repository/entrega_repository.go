package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

// EntregaRepository manages persistence for submissions and their notas.
// Ownership flows through atividade -> turma -> professor.
type EntregaRepository struct {
	db *sqlx.DB
}

// NewEntregaRepository constructs a new entrega repository.
func NewEntregaRepository(db *sqlx.DB) *EntregaRepository {
	return &EntregaRepository{db: db}
}

// FindByID returns the entrega only when its atividade's turma is owned by the professor.
func (r *EntregaRepository) FindByID(ctx context.Context, id, professorID string) (*models.Entrega, error) {
	const query = `SELECT e.id, e.atividade_id, e.aluno_id, e.arquivo, e.comentario_aluno, e.status, e.data_entrega
		FROM entregas e
		JOIN atividades a ON a.id = e.atividade_id
		JOIN turmas t ON t.id = a.turma_id
		WHERE e.id = $1 AND t.professor_id = $2`
	var entrega models.Entrega
	if err := r.db.GetContext(ctx, &entrega, query, id, professorID); err != nil {
		return nil, err
	}
	return &entrega, nil
}

// FindDetalheByID returns the joined view of one entrega, owner-scoped.
func (r *EntregaRepository) FindDetalheByID(ctx context.Context, id, professorID string) (*models.EntregaDetalhe, error) {
	const query = `SELECT e.id, e.atividade_id, e.aluno_id, e.arquivo, e.comentario_aluno, e.status, e.data_entrega,
		al.nome AS aluno_nome, al.matricula AS aluno_matricula, a.titulo AS atividade_titulo,
		n.valor AS nota_valor, n.comentario_professor AS nota_comentario
		FROM entregas e
		JOIN atividades a ON a.id = e.atividade_id
		JOIN turmas t ON t.id = a.turma_id
		JOIN alunos al ON al.id = e.aluno_id
		LEFT JOIN notas n ON n.entrega_id = e.id
		WHERE e.id = $1 AND t.professor_id = $2`
	var detalhe models.EntregaDetalhe
	if err := r.db.GetContext(ctx, &detalhe, query, id, professorID); err != nil {
		return nil, err
	}
	return &detalhe, nil
}

// ListByAtividade returns the atividade's entregas with aluno and nota info.
func (r *EntregaRepository) ListByAtividade(ctx context.Context, atividadeID string) ([]models.EntregaDetalhe, error) {
	const query = `SELECT e.id, e.atividade_id, e.aluno_id, e.arquivo, e.comentario_aluno, e.status, e.data_entrega,
		al.nome AS aluno_nome, al.matricula AS aluno_matricula, a.titulo AS atividade_titulo,
		n.valor AS nota_valor, n.comentario_professor AS nota_comentario
		FROM entregas e
		JOIN atividades a ON a.id = e.atividade_id
		JOIN alunos al ON al.id = e.aluno_id
		LEFT JOIN notas n ON n.entrega_id = e.id
		WHERE e.atividade_id = $1 ORDER BY al.nome`
	var entregas []models.EntregaDetalhe
	if err := r.db.SelectContext(ctx, &entregas, query, atividadeID); err != nil {
		return nil, fmt.Errorf("list entregas by atividade: %w", err)
	}
	return entregas, nil
}

// ListByAluno returns the aluno's entregas across the professor's turmas.
func (r *EntregaRepository) ListByAluno(ctx context.Context, alunoID, professorID string) ([]models.EntregaDetalhe, error) {
	const query = `SELECT e.id, e.atividade_id, e.aluno_id, e.arquivo, e.comentario_aluno, e.status, e.data_entrega,
		al.nome AS aluno_nome, al.matricula AS aluno_matricula, a.titulo AS atividade_titulo,
		n.valor AS nota_valor, n.comentario_professor AS nota_comentario
		FROM entregas e
		JOIN atividades a ON a.id = e.atividade_id
		JOIN turmas t ON t.id = a.turma_id
		JOIN alunos al ON al.id = e.aluno_id
		LEFT JOIN notas n ON n.entrega_id = e.id
		WHERE e.aluno_id = $1 AND t.professor_id = $2 ORDER BY a.data_entrega DESC`
	var entregas []models.EntregaDetalhe
	if err := r.db.SelectContext(ctx, &entregas, query, alunoID, professorID); err != nil {
		return nil, fmt.Errorf("list entregas by aluno: %w", err)
	}
	return entregas, nil
}

// Create persists an entrega. The (atividade, aluno) pair is unique.
func (r *EntregaRepository) Create(ctx context.Context, entrega *models.Entrega) error {
	if entrega.ID == "" {
		entrega.ID = uuid.NewString()
	}
	const query = `INSERT INTO entregas (id, atividade_id, aluno_id, arquivo, comentario_aluno, status, data_entrega)
		VALUES (:id, :atividade_id, :aluno_id, :arquivo, :comentario_aluno, :status, :data_entrega)`
	if _, err := r.db.NamedExecContext(ctx, query, entrega); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "entrega already exists for this atividade and aluno")
		}
		return fmt.Errorf("create entrega: %w", err)
	}
	return nil
}

// UpdateStatus sets the lifecycle status on one entrega.
func (r *EntregaRepository) UpdateStatus(ctx context.Context, id string, status models.EntregaStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE entregas SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update entrega status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the entrega and its nota in one transaction.
func (r *EntregaRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete entrega: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM notas WHERE entrega_id = $1`, id); err != nil {
		return fmt.Errorf("delete entrega nota: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entregas WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entrega: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete entrega: %w", err)
	}
	return nil
}

// SetArquivo stores the submission file reference and stamps the turn-in time.
func (r *EntregaRepository) SetArquivo(ctx context.Context, id, ref string, submittedAt time.Time) error {
	const query = `UPDATE entregas SET arquivo = $2, data_entrega = $3, status = CASE WHEN status = 'PENDENTE' THEN 'ENTREGUE' ELSE status END WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref, submittedAt); err != nil {
		return fmt.Errorf("set entrega arquivo: %w", err)
	}
	return nil
}

// CountPendentesByProfessor counts submissions waiting for grading (status
// ENTREGUE) across all turmas owned by the professor.
func (r *EntregaRepository) CountPendentesByProfessor(ctx context.Context, professorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM entregas e
		JOIN atividades a ON a.id = e.atividade_id
		JOIN turmas t ON t.id = a.turma_id
		WHERE t.professor_id = $1 AND e.status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, professorID, models.EntregaStatusEntregue); err != nil {
		return 0, fmt.Errorf("count entregas pendentes: %w", err)
	}
	return count, nil
}

// SweepAtrasadas marks still-pending entregas of overdue atividades in the
// turma as ATRASADO and returns how many rows changed. Invoked explicitly by
// the professor, never by a clock.
func (r *EntregaRepository) SweepAtrasadas(ctx context.Context, turmaID string, now time.Time) (int64, error) {
	const query = `UPDATE entregas SET status = $3 WHERE status = $4 AND atividade_id IN (
		SELECT id FROM atividades WHERE turma_id = $1 AND data_entrega < $2)`
	res, err := r.db.ExecContext(ctx, query, turmaID, now, models.EntregaStatusAtrasado, models.EntregaStatusPendente)
	if err != nil {
		return 0, fmt.Errorf("sweep entregas atrasadas: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep entregas atrasadas: %w", err)
	}
	return affected, nil
}

// FindNotaByEntrega returns the nota attached to an entrega, if any.
func (r *EntregaRepository) FindNotaByEntrega(ctx context.Context, entregaID string) (*models.Nota, error) {
	const query = `SELECT id, entrega_id, valor, comentario_professor, data_avaliacao FROM notas WHERE entrega_id = $1`
	var nota models.Nota
	if err := r.db.GetContext(ctx, &nota, query, entregaID); err != nil {
		return nil, err
	}
	return &nota, nil
}

// UpsertNota attaches or updates the nota for an entrega and transitions the
// entrega to AVALIADO in the same transaction. Re-grading keeps AVALIADO.
func (r *EntregaRepository) UpsertNota(ctx context.Context, nota *models.Nota) error {
	if nota.ID == "" {
		nota.ID = uuid.NewString()
	}
	if nota.DataAvaliacao.IsZero() {
		nota.DataAvaliacao = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert nota: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const upsert = `INSERT INTO notas (id, entrega_id, valor, comentario_professor, data_avaliacao)
		VALUES (:id, :entrega_id, :valor, :comentario_professor, :data_avaliacao)
		ON CONFLICT (entrega_id) DO UPDATE SET valor = EXCLUDED.valor, comentario_professor = EXCLUDED.comentario_professor, data_avaliacao = EXCLUDED.data_avaliacao`
	if _, err := tx.NamedExecContext(ctx, upsert, nota); err != nil {
		return fmt.Errorf("upsert nota: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE entregas SET status = $2 WHERE id = $1`, nota.EntregaID, models.EntregaStatusAvaliado); err != nil {
		return fmt.Errorf("mark entrega avaliada: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert nota: %w", err)
	}
	return nil
}

// BoletimNotas returns every graded value in the turma keyed by aluno.
func (r *EntregaRepository) BoletimNotas(ctx context.Context, turmaID string) ([]models.BoletimNota, error) {
	const query = `SELECT e.aluno_id, a.titulo AS atividade_titulo, n.valor
		FROM notas n
		JOIN entregas e ON e.id = n.entrega_id
		JOIN atividades a ON a.id = e.atividade_id
		WHERE a.turma_id = $1 ORDER BY a.data_entrega`
	var notas []models.BoletimNota
	if err := r.db.SelectContext(ctx, &notas, query, turmaID); err != nil {
		return nil, fmt.Errorf("list boletim notas: %w", err)
	}
	return notas, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
)

// AtividadeRepository manages persistence for assignments.
type AtividadeRepository struct {
	db *sqlx.DB
}

// NewAtividadeRepository constructs a new atividade repository.
func NewAtividadeRepository(db *sqlx.DB) *AtividadeRepository {
	return &AtividadeRepository{db: db}
}

// ListByTurma returns the turma's atividades ordered by due date, latest first.
func (r *AtividadeRepository) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Atividade, error) {
	query := `SELECT id, titulo, descricao, turma_id, data_entrega, valor_pontos, arquivo_anexo, criado_em FROM atividades WHERE turma_id = $1 ORDER BY data_entrega DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var atividades []models.Atividade
	if err := r.db.SelectContext(ctx, &atividades, query, turmaID); err != nil {
		return nil, fmt.Errorf("list atividades: %w", err)
	}
	return atividades, nil
}

// RecentesByProfessor returns the most recently created atividades across the
// professor's turmas, for the dashboard.
func (r *AtividadeRepository) RecentesByProfessor(ctx context.Context, professorID string, limit int) ([]models.Atividade, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT a.id, a.titulo, a.descricao, a.turma_id, a.data_entrega, a.valor_pontos, a.arquivo_anexo, a.criado_em
		FROM atividades a JOIN turmas t ON t.id = a.turma_id
		WHERE t.professor_id = $1 ORDER BY a.criado_em DESC LIMIT %d`, limit)
	var atividades []models.Atividade
	if err := r.db.SelectContext(ctx, &atividades, query, professorID); err != nil {
		return nil, fmt.Errorf("list recent atividades: %w", err)
	}
	return atividades, nil
}

// FindByID returns the atividade only when its turma is owned by the professor.
func (r *AtividadeRepository) FindByID(ctx context.Context, id, professorID string) (*models.Atividade, error) {
	const query = `SELECT a.id, a.titulo, a.descricao, a.turma_id, a.data_entrega, a.valor_pontos, a.arquivo_anexo, a.criado_em
		FROM atividades a JOIN turmas t ON t.id = a.turma_id
		WHERE a.id = $1 AND t.professor_id = $2`
	var atividade models.Atividade
	if err := r.db.GetContext(ctx, &atividade, query, id, professorID); err != nil {
		return nil, err
	}
	return &atividade, nil
}

// Create persists an atividade under its turma.
func (r *AtividadeRepository) Create(ctx context.Context, atividade *models.Atividade) error {
	if atividade.ID == "" {
		atividade.ID = uuid.NewString()
	}
	if atividade.CriadoEm.IsZero() {
		atividade.CriadoEm = time.Now().UTC()
	}
	const query = `INSERT INTO atividades (id, titulo, descricao, turma_id, data_entrega, valor_pontos, arquivo_anexo, criado_em)
		VALUES (:id, :titulo, :descricao, :turma_id, :data_entrega, :valor_pontos, :arquivo_anexo, :criado_em)`
	if _, err := r.db.NamedExecContext(ctx, query, atividade); err != nil {
		return fmt.Errorf("create atividade: %w", err)
	}
	return nil
}

// Update modifies an atividade record.
func (r *AtividadeRepository) Update(ctx context.Context, atividade *models.Atividade) error {
	const query = `UPDATE atividades SET titulo = :titulo, descricao = :descricao, data_entrega = :data_entrega, valor_pontos = :valor_pontos, arquivo_anexo = :arquivo_anexo WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, atividade); err != nil {
		return fmt.Errorf("update atividade: %w", err)
	}
	return nil
}

// SetAnexo stores the attachment reference for the atividade.
func (r *AtividadeRepository) SetAnexo(ctx context.Context, id, ref string) error {
	const query = `UPDATE atividades SET arquivo_anexo = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref); err != nil {
		return fmt.Errorf("set atividade anexo: %w", err)
	}
	return nil
}

// Delete removes the atividade and its entregas/notas in one transaction.
func (r *AtividadeRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete atividade: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM notas WHERE entrega_id IN (SELECT id FROM entregas WHERE atividade_id = $1)`,
		`DELETE FROM entregas WHERE atividade_id = $1`,
		`DELETE FROM atividades WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("cascade delete atividade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete atividade: %w", err)
	}
	return nil
}

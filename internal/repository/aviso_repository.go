package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
)

// AvisoRepository manages persistence for class announcements.
type AvisoRepository struct {
	db *sqlx.DB
}

// NewAvisoRepository constructs a new aviso repository.
func NewAvisoRepository(db *sqlx.DB) *AvisoRepository {
	return &AvisoRepository{db: db}
}

// ListByTurma returns the turma's avisos, important ones first.
func (r *AvisoRepository) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Aviso, error) {
	query := `SELECT id, titulo, conteudo, turma_id, importante, criado_em FROM avisos WHERE turma_id = $1 ORDER BY importante DESC, criado_em DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var avisos []models.Aviso
	if err := r.db.SelectContext(ctx, &avisos, query, turmaID); err != nil {
		return nil, fmt.Errorf("list avisos: %w", err)
	}
	return avisos, nil
}

// FindByID returns the aviso only when its turma is owned by the professor.
func (r *AvisoRepository) FindByID(ctx context.Context, id, professorID string) (*models.Aviso, error) {
	const query = `SELECT av.id, av.titulo, av.conteudo, av.turma_id, av.importante, av.criado_em
		FROM avisos av JOIN turmas t ON t.id = av.turma_id
		WHERE av.id = $1 AND t.professor_id = $2`
	var aviso models.Aviso
	if err := r.db.GetContext(ctx, &aviso, query, id, professorID); err != nil {
		return nil, err
	}
	return &aviso, nil
}

// Create persists an aviso under its turma.
func (r *AvisoRepository) Create(ctx context.Context, aviso *models.Aviso) error {
	if aviso.ID == "" {
		aviso.ID = uuid.NewString()
	}
	if aviso.CriadoEm.IsZero() {
		aviso.CriadoEm = time.Now().UTC()
	}
	const query = `INSERT INTO avisos (id, titulo, conteudo, turma_id, importante, criado_em) VALUES (:id, :titulo, :conteudo, :turma_id, :importante, :criado_em)`
	if _, err := r.db.NamedExecContext(ctx, query, aviso); err != nil {
		return fmt.Errorf("create aviso: %w", err)
	}
	return nil
}

// Update modifies an aviso record.
func (r *AvisoRepository) Update(ctx context.Context, aviso *models.Aviso) error {
	const query = `UPDATE avisos SET titulo = :titulo, conteudo = :conteudo, importante = :importante WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, aviso); err != nil {
		return fmt.Errorf("update aviso: %w", err)
	}
	return nil
}

// Delete removes an aviso record.
func (r *AvisoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM avisos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete aviso: %w", err)
	}
	return nil
}

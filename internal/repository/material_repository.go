package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
)

// MaterialRepository manages persistence for learning materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs a new material repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// ListByTurma returns the turma's materials, newest first.
func (r *MaterialRepository) ListByTurma(ctx context.Context, turmaID string, limit int) ([]models.Material, error) {
	query := `SELECT id, titulo, descricao, tipo, arquivo, link, turma_id, criado_em, atualizado_em FROM materiais WHERE turma_id = $1 ORDER BY criado_em DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var materiais []models.Material
	if err := r.db.SelectContext(ctx, &materiais, query, turmaID); err != nil {
		return nil, fmt.Errorf("list materiais: %w", err)
	}
	return materiais, nil
}

// FindByID returns the material only when its turma is owned by the professor.
func (r *MaterialRepository) FindByID(ctx context.Context, id, professorID string) (*models.Material, error) {
	const query = `SELECT m.id, m.titulo, m.descricao, m.tipo, m.arquivo, m.link, m.turma_id, m.criado_em, m.atualizado_em
		FROM materiais m JOIN turmas t ON t.id = m.turma_id
		WHERE m.id = $1 AND t.professor_id = $2`
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id, professorID); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create persists a material under its turma.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if material.CriadoEm.IsZero() {
		material.CriadoEm = now
	}
	material.AtualizadoEm = now
	const query = `INSERT INTO materiais (id, titulo, descricao, tipo, arquivo, link, turma_id, criado_em, atualizado_em)
		VALUES (:id, :titulo, :descricao, :tipo, :arquivo, :link, :turma_id, :criado_em, :atualizado_em)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update modifies a material record.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	material.AtualizadoEm = time.Now().UTC()
	const query = `UPDATE materiais SET titulo = :titulo, descricao = :descricao, tipo = :tipo, arquivo = :arquivo, link = :link, atualizado_em = :atualizado_em WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// SetArquivo stores the attachment reference for the material.
func (r *MaterialRepository) SetArquivo(ctx context.Context, id, ref string) error {
	const query = `UPDATE materiais SET arquivo = $2, atualizado_em = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC()); err != nil {
		return fmt.Errorf("set material arquivo: %w", err)
	}
	return nil
}

// Delete removes a material record. Materials are leaves, nothing cascades.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM materiais WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

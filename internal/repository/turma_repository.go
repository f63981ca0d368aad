package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

// TurmaRepository manages persistence for turmas and their enrollment edges.
// Every read is scoped to the owning professor; a turma owned by someone else
// behaves exactly like a missing row.
type TurmaRepository struct {
	db *sqlx.DB
}

// NewTurmaRepository constructs a new turma repository.
func NewTurmaRepository(db *sqlx.DB) *TurmaRepository {
	return &TurmaRepository{db: db}
}

// List returns the professor's turmas with live student/activity counts.
func (r *TurmaRepository) List(ctx context.Context, professorID string, filter models.TurmaFilter) ([]models.TurmaComContagens, int, error) {
	base := "FROM turmas t WHERE t.professor_id = $1"
	args := []interface{}{professorID}

	if filter.Ano > 0 {
		base += fmt.Sprintf(" AND t.ano = $%d", len(args)+1)
		args = append(args, filter.Ano)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(t.nome) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT t.id, t.nome, t.ano, t.descricao, t.professor_id, t.criado_em,
		(SELECT COUNT(*) FROM turma_alunos ta WHERE ta.turma_id = t.id) AS total_alunos,
		(SELECT COUNT(*) FROM atividades a WHERE a.turma_id = t.id) AS total_atividades
		%s ORDER BY t.ano DESC, t.nome LIMIT %d OFFSET %d`, base, size, offset)
	var turmas []models.TurmaComContagens
	if err := r.db.SelectContext(ctx, &turmas, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list turmas: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count turmas: %w", err)
	}
	return turmas, total, nil
}

// FindByID returns the turma only when owned by the given professor.
func (r *TurmaRepository) FindByID(ctx context.Context, id, professorID string) (*models.Turma, error) {
	const query = `SELECT id, nome, ano, descricao, professor_id, criado_em FROM turmas WHERE id = $1 AND professor_id = $2`
	var turma models.Turma
	if err := r.db.GetContext(ctx, &turma, query, id, professorID); err != nil {
		return nil, err
	}
	return &turma, nil
}

// Create persists a turma owned by the requesting professor.
func (r *TurmaRepository) Create(ctx context.Context, turma *models.Turma) error {
	if turma.ID == "" {
		turma.ID = uuid.NewString()
	}
	if turma.CriadoEm.IsZero() {
		turma.CriadoEm = time.Now().UTC()
	}
	const query = `INSERT INTO turmas (id, nome, ano, descricao, professor_id, criado_em) VALUES (:id, :nome, :ano, :descricao, :professor_id, :criado_em)`
	if _, err := r.db.NamedExecContext(ctx, query, turma); err != nil {
		return fmt.Errorf("create turma: %w", err)
	}
	return nil
}

// Update modifies a turma record. Ownership never transfers.
func (r *TurmaRepository) Update(ctx context.Context, turma *models.Turma) error {
	const query = `UPDATE turmas SET nome = :nome, ano = :ano, descricao = :descricao WHERE id = :id AND professor_id = :professor_id`
	res, err := r.db.NamedExecContext(ctx, query, turma)
	if err != nil {
		return fmt.Errorf("update turma: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the turma and all its child records in one transaction.
// Cascade order: notas -> entregas -> atividades, materiais, avisos,
// matriculas -> turma.
func (r *TurmaRepository) Delete(ctx context.Context, id, professorID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete turma: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var owned int
	if err := tx.GetContext(ctx, &owned, `SELECT 1 FROM turmas WHERE id = $1 AND professor_id = $2`, id, professorID); err != nil {
		return err
	}

	steps := []string{
		`DELETE FROM notas WHERE entrega_id IN (SELECT e.id FROM entregas e JOIN atividades a ON a.id = e.atividade_id WHERE a.turma_id = $1)`,
		`DELETE FROM entregas WHERE atividade_id IN (SELECT id FROM atividades WHERE turma_id = $1)`,
		`DELETE FROM atividades WHERE turma_id = $1`,
		`DELETE FROM materiais WHERE turma_id = $1`,
		`DELETE FROM avisos WHERE turma_id = $1`,
		`DELETE FROM turma_alunos WHERE turma_id = $1`,
		`DELETE FROM turmas WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("cascade delete turma: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete turma: %w", err)
	}
	return nil
}

// Matricular enrolls an aluno into the turma.
func (r *TurmaRepository) Matricular(ctx context.Context, turmaID, alunoID string) error {
	const query = `INSERT INTO turma_alunos (turma_id, aluno_id, criado_em) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, turmaID, alunoID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "aluno already enrolled in turma")
		}
		return fmt.Errorf("matricular aluno: %w", err)
	}
	return nil
}

// Desmatricular removes an enrollment edge.
func (r *TurmaRepository) Desmatricular(ctx context.Context, turmaID, alunoID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM turma_alunos WHERE turma_id = $1 AND aluno_id = $2`, turmaID, alunoID)
	if err != nil {
		return fmt.Errorf("desmatricular aluno: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAlunos returns the turma roster in stable nome order.
func (r *TurmaRepository) ListAlunos(ctx context.Context, turmaID string) ([]models.Aluno, error) {
	const query = `SELECT a.id, a.nome, a.email, a.matricula, a.data_nascimento, a.criado_em
		FROM alunos a JOIN turma_alunos ta ON ta.aluno_id = a.id
		WHERE ta.turma_id = $1 ORDER BY a.nome`
	var alunos []models.Aluno
	if err := r.db.SelectContext(ctx, &alunos, query, turmaID); err != nil {
		return nil, fmt.Errorf("list turma alunos: %w", err)
	}
	return alunos, nil
}

// IsAlunoMatriculado reports whether the aluno is enrolled in the turma.
func (r *TurmaRepository) IsAlunoMatriculado(ctx context.Context, turmaID, alunoID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM turma_alunos WHERE turma_id = $1 AND aluno_id = $2 LIMIT 1`, turmaID, alunoID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check matricula: %w", err)
	}
	return true, nil
}

// Resumo computes the live student/activity counts for the turma.
func (r *TurmaRepository) Resumo(ctx context.Context, turmaID string) (*models.TurmaResumo, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM turma_alunos WHERE turma_id = $1) AS total_alunos,
		(SELECT COUNT(*) FROM atividades WHERE turma_id = $1) AS total_atividades`
	var resumo models.TurmaResumo
	if err := r.db.GetContext(ctx, &resumo, query, turmaID); err != nil {
		return nil, fmt.Errorf("turma resumo: %w", err)
	}
	return &resumo, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-dev/escola-api/internal/models"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

// AlunoRepository manages persistence for alunos. A professor only sees
// alunos enrolled in at least one of their turmas.
type AlunoRepository struct {
	db *sqlx.DB
}

// NewAlunoRepository constructs a new aluno repository.
func NewAlunoRepository(db *sqlx.DB) *AlunoRepository {
	return &AlunoRepository{db: db}
}

// List returns the alunos visible to the professor, in nome order.
func (r *AlunoRepository) List(ctx context.Context, professorID string, filter models.AlunoFilter) ([]models.Aluno, int, error) {
	base := `FROM alunos a WHERE EXISTS (
		SELECT 1 FROM turma_alunos ta JOIN turmas t ON t.id = ta.turma_id
		WHERE ta.aluno_id = a.id AND t.professor_id = $1`
	args := []interface{}{professorID}

	if filter.TurmaID != "" {
		base += fmt.Sprintf(" AND t.id = $%d", len(args)+1)
		args = append(args, filter.TurmaID)
	}
	base += ")"

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(a.nome) LIKE $%d OR LOWER(a.matricula) LIKE $%d)", len(args)+1, len(args)+1)
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

	query := fmt.Sprintf(`SELECT a.id, a.nome, a.email, a.matricula, a.data_nascimento, a.criado_em %s ORDER BY a.nome LIMIT %d OFFSET %d`, base, size, offset)
	var alunos []models.Aluno
	if err := r.db.SelectContext(ctx, &alunos, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list alunos: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count alunos: %w", err)
	}
	return alunos, total, nil
}

// FindByID returns the aluno only when enrolled in one of the professor's turmas.
func (r *AlunoRepository) FindByID(ctx context.Context, id, professorID string) (*models.Aluno, error) {
	const query = `SELECT a.id, a.nome, a.email, a.matricula, a.data_nascimento, a.criado_em
		FROM alunos a WHERE a.id = $1 AND EXISTS (
			SELECT 1 FROM turma_alunos ta JOIN turmas t ON t.id = ta.turma_id
			WHERE ta.aluno_id = a.id AND t.professor_id = $2)`
	var aluno models.Aluno
	if err := r.db.GetContext(ctx, &aluno, query, id, professorID); err != nil {
		return nil, err
	}
	return &aluno, nil
}

// FindByIDUnscoped returns the aluno regardless of enrollment. Used when
// validating enrollment candidates during matricula.
func (r *AlunoRepository) FindByIDUnscoped(ctx context.Context, id string) (*models.Aluno, error) {
	const query = `SELECT id, nome, email, matricula, data_nascimento, criado_em FROM alunos WHERE id = $1`
	var aluno models.Aluno
	if err := r.db.GetContext(ctx, &aluno, query, id); err != nil {
		return nil, err
	}
	return &aluno, nil
}

// Create persists an aluno record. Email and matricula are unique.
func (r *AlunoRepository) Create(ctx context.Context, aluno *models.Aluno) error {
	if aluno.ID == "" {
		aluno.ID = uuid.NewString()
	}
	if aluno.CriadoEm.IsZero() {
		aluno.CriadoEm = time.Now().UTC()
	}
	const query = `INSERT INTO alunos (id, nome, email, matricula, data_nascimento, criado_em) VALUES (:id, :nome, :email, :matricula, :data_nascimento, :criado_em)`
	if _, err := r.db.NamedExecContext(ctx, query, aluno); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "email or matricula already in use")
		}
		return fmt.Errorf("create aluno: %w", err)
	}
	return nil
}

// Update modifies an aluno record.
func (r *AlunoRepository) Update(ctx context.Context, aluno *models.Aluno) error {
	const query = `UPDATE alunos SET nome = :nome, email = :email, matricula = :matricula, data_nascimento = :data_nascimento WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, aluno); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "email or matricula already in use")
		}
		return fmt.Errorf("update aluno: %w", err)
	}
	return nil
}

// Delete removes the aluno and their submissions in one transaction.
func (r *AlunoRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete aluno: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM notas WHERE entrega_id IN (SELECT id FROM entregas WHERE aluno_id = $1)`,
		`DELETE FROM entregas WHERE aluno_id = $1`,
		`DELETE FROM turma_alunos WHERE aluno_id = $1`,
		`DELETE FROM alunos WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("cascade delete aluno: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete aluno: %w", err)
	}
	return nil
}

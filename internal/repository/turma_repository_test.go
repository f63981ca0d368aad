package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/escola-dev/escola-api/pkg/errors"
)

func newTurmaMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTurmaRepositoryFindByIDScopesToProfessor(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	rows := sqlmock.NewRows([]string{"id", "nome", "ano", "descricao", "professor_id", "criado_em"}).
		AddRow("turma-1", "Turma A", 2026, "", "prof-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, nome, ano, descricao, professor_id, criado_em FROM turmas WHERE id = $1 AND professor_id = $2")).
		WithArgs("turma-1", "prof-1").
		WillReturnRows(rows)

	turma, err := repo.FindByID(context.Background(), "turma-1", "prof-1")
	require.NoError(t, err)
	assert.Equal(t, "Turma A", turma.Nome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryFindByIDOtherProfessor(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, nome, ano, descricao, professor_id, criado_em FROM turmas WHERE id = $1 AND professor_id = $2")).
		WithArgs("turma-1", "prof-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "turma-1", "prof-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryMatricularDuplicate(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO turma_alunos (turma_id, aluno_id, criado_em) VALUES ($1, $2, $3)")).
		WithArgs("turma-1", "aluno-1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Matricular(context.Background(), "turma-1", "aluno-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM turmas WHERE id = $1 AND professor_id = $2")).
		WithArgs("turma-1", "prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notas WHERE entrega_id IN")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM entregas WHERE atividade_id IN")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM atividades WHERE turma_id = $1")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materiais WHERE turma_id = $1")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM avisos WHERE turma_id = $1")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM turma_alunos WHERE turma_id = $1")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM turmas WHERE id = $1")).WithArgs("turma-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "turma-1", "prof-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryDeleteNotOwnedRollsBack(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM turmas WHERE id = $1 AND professor_id = $2")).
		WithArgs("turma-1", "prof-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "turma-1", "prof-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryIsAlunoMatriculado(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM turma_alunos WHERE turma_id = $1 AND aluno_id = $2 LIMIT 1")).
		WithArgs("turma-1", "aluno-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM turma_alunos WHERE turma_id = $1 AND aluno_id = $2 LIMIT 1")).
		WithArgs("turma-1", "aluno-2").
		WillReturnError(sql.ErrNoRows)

	enrolled, err := repo.IsAlunoMatriculado(context.Background(), "turma-1", "aluno-1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	enrolled, err = repo.IsAlunoMatriculado(context.Background(), "turma-1", "aluno-2")
	require.NoError(t, err)
	assert.False(t, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTurmaRepositoryResumo(t *testing.T) {
	db, mock, cleanup := newTurmaMock(t)
	defer cleanup()
	repo := NewTurmaRepository(db)

	mock.ExpectQuery("SELECT").
		WithArgs("turma-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_alunos", "total_atividades"}).AddRow(12, 4))

	resumo, err := repo.Resumo(context.Background(), "turma-1")
	require.NoError(t, err)
	assert.Equal(t, 12, resumo.TotalAlunos)
	assert.Equal(t, 4, resumo.TotalAtividades)
	assert.NoError(t, mock.ExpectationsWereMet())
}

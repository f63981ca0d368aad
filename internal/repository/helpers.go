package repository

import (
	"errors"

	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique-constraint error.
// Duplicate emails, matriculas and (atividade, aluno) pairs surface this way;
// repositories translate them into the typed conflict error so the store
// remains the authority on uniqueness.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}

package models

import "time"

// Aluno represents an enrolled learner. Email and matricula are unique.
type Aluno struct {
	ID             string     `db:"id" json:"id"`
	Nome           string     `db:"nome" json:"nome"`
	Email          string     `db:"email" json:"email"`
	Matricula      string     `db:"matricula" json:"matricula"`
	DataNascimento *time.Time `db:"data_nascimento" json:"data_nascimento,omitempty"`
	CriadoEm       time.Time  `db:"criado_em" json:"criado_em"`
}

// AlunoDetalhe composes the aluno page with their submissions.
type AlunoDetalhe struct {
	Aluno
	Entregas []EntregaDetalhe `json:"entregas"`
}

// AlunoFilter defines filter criteria for listing alunos.
type AlunoFilter struct {
	TurmaID  string
	Search   string
	Page     int
	PageSize int
}

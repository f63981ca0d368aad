package models

import "time"

// Turma represents a taught class/section, always owned by one professor.
type Turma struct {
	ID          string    `db:"id" json:"id"`
	Nome        string    `db:"nome" json:"nome"`
	Ano         int       `db:"ano" json:"ano"`
	Descricao   string    `db:"descricao" json:"descricao"`
	ProfessorID string    `db:"professor_id" json:"professor_id"`
	CriadoEm    time.Time `db:"criado_em" json:"criado_em"`
}

// TurmaComContagens extends Turma with live enrollment/activity counts.
type TurmaComContagens struct {
	Turma
	TotalAlunos     int `db:"total_alunos" json:"total_alunos"`
	TotalAtividades int `db:"total_atividades" json:"total_atividades"`
}

// TurmaResumo carries the computed per-turma summary.
type TurmaResumo struct {
	TotalAlunos     int `db:"total_alunos" json:"total_alunos"`
	TotalAtividades int `db:"total_atividades" json:"total_atividades"`
}

// TurmaDetalhe composes the turma page: roster plus latest child records.
type TurmaDetalhe struct {
	Turma
	Alunos     []Aluno     `json:"alunos"`
	Materiais  []Material  `json:"materiais"`
	Atividades []Atividade `json:"atividades"`
	Avisos     []Aviso     `json:"avisos"`
}

// TurmaFilter defines filter criteria for listing turmas.
type TurmaFilter struct {
	Ano      int
	Search   string
	Page     int
	PageSize int
}

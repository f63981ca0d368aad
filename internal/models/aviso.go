package models

import "time"

// Aviso represents a class announcement.
type Aviso struct {
	ID         string    `db:"id" json:"id"`
	Titulo     string    `db:"titulo" json:"titulo"`
	Conteudo   string    `db:"conteudo" json:"conteudo"`
	TurmaID    string    `db:"turma_id" json:"turma_id"`
	Importante bool      `db:"importante" json:"importante"`
	CriadoEm   time.Time `db:"criado_em" json:"criado_em"`
}

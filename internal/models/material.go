package models

import "time"

// MaterialTipo enumerates the supported learning-resource kinds.
type MaterialTipo string

const (
	MaterialTipoPDF       MaterialTipo = "PDF"
	MaterialTipoVideo     MaterialTipo = "VIDEO"
	MaterialTipoLink      MaterialTipo = "LINK"
	MaterialTipoDocumento MaterialTipo = "DOCUMENTO"
)

// Material represents a learning resource attached to a turma.
type Material struct {
	ID           string       `db:"id" json:"id"`
	Titulo       string       `db:"titulo" json:"titulo"`
	Descricao    string       `db:"descricao" json:"descricao"`
	Tipo         MaterialTipo `db:"tipo" json:"tipo"`
	Arquivo      *string      `db:"arquivo" json:"arquivo,omitempty"`
	Link         string       `db:"link" json:"link"`
	TurmaID      string       `db:"turma_id" json:"turma_id"`
	CriadoEm     time.Time    `db:"criado_em" json:"criado_em"`
	AtualizadoEm time.Time    `db:"atualizado_em" json:"atualizado_em"`
}

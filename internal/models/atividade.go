package models

import "time"

// Atividade represents an assignment with a due date and point value.
type Atividade struct {
	ID           string    `db:"id" json:"id"`
	Titulo       string    `db:"titulo" json:"titulo"`
	Descricao    string    `db:"descricao" json:"descricao"`
	TurmaID      string    `db:"turma_id" json:"turma_id"`
	DataEntrega  time.Time `db:"data_entrega" json:"data_entrega"`
	ValorPontos  float64   `db:"valor_pontos" json:"valor_pontos"`
	ArquivoAnexo *string   `db:"arquivo_anexo" json:"arquivo_anexo,omitempty"`
	CriadoEm     time.Time `db:"criado_em" json:"criado_em"`
}

// AtividadeDetalhe composes the atividade page with its submissions.
type AtividadeDetalhe struct {
	Atividade
	Entregas []EntregaDetalhe `json:"entregas"`
}

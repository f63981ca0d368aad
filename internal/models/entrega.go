package models

import "time"

// EntregaStatus tracks the lifecycle of a submission.
// AVALIADO is reachable only once a nota is attached, and is never reverted.
// ATRASADO is set explicitly (single mark or sweep), never derived from clocks.
type EntregaStatus string

const (
	EntregaStatusPendente EntregaStatus = "PENDENTE"
	EntregaStatusEntregue EntregaStatus = "ENTREGUE"
	EntregaStatusAvaliado EntregaStatus = "AVALIADO"
	EntregaStatusAtrasado EntregaStatus = "ATRASADO"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s EntregaStatus) Valid() bool {
	switch s {
	case EntregaStatusPendente, EntregaStatusEntregue, EntregaStatusAvaliado, EntregaStatusAtrasado:
		return true
	}
	return false
}

// Entrega is a student's submission against one atividade.
// The (atividade, aluno) pair is unique.
type Entrega struct {
	ID              string        `db:"id" json:"id"`
	AtividadeID     string        `db:"atividade_id" json:"atividade_id"`
	AlunoID         string        `db:"aluno_id" json:"aluno_id"`
	Arquivo         *string       `db:"arquivo" json:"arquivo,omitempty"`
	ComentarioAluno string        `db:"comentario_aluno" json:"comentario_aluno"`
	Status          EntregaStatus `db:"status" json:"status"`
	DataEntrega     *time.Time    `db:"data_entrega" json:"data_entrega,omitempty"`
}

// Nota is the grade attached to a submission, exactly one per entrega.
type Nota struct {
	ID                  string    `db:"id" json:"id"`
	EntregaID           string    `db:"entrega_id" json:"entrega_id"`
	Valor               float64   `db:"valor" json:"valor"`
	ComentarioProfessor string    `db:"comentario_professor" json:"comentario_professor"`
	DataAvaliacao       time.Time `db:"data_avaliacao" json:"data_avaliacao"`
}

// EntregaDetalhe is the joined view used on atividade and aluno pages.
type EntregaDetalhe struct {
	Entrega
	AlunoNome       string   `db:"aluno_nome" json:"aluno_nome"`
	AlunoMatricula  string   `db:"aluno_matricula" json:"aluno_matricula"`
	AtividadeTitulo string   `db:"atividade_titulo" json:"atividade_titulo"`
	NotaValor       *float64 `db:"nota_valor" json:"nota_valor,omitempty"`
	NotaComentario  *string  `db:"nota_comentario" json:"nota_comentario,omitempty"`
}

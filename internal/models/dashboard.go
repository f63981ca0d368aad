package models

// DashboardResumo is the professor landing-page payload.
type DashboardResumo struct {
	Turmas             []TurmaComContagens `json:"turmas"`
	AtividadesRecentes []Atividade         `json:"atividades_recentes"`
	EntregasPendentes  int                 `json:"entregas_pendentes"`
	TotalTurmas        int                 `json:"total_turmas"`
}

// BoletimNota is one graded entry inside a boletim row.
type BoletimNota struct {
	AlunoID         string  `db:"aluno_id" json:"-"`
	AtividadeTitulo string  `db:"atividade_titulo" json:"atividade_titulo"`
	Valor           float64 `db:"valor" json:"valor"`
}

// BoletimLinha aggregates one aluno's grades within a turma.
type BoletimLinha struct {
	Aluno Aluno         `json:"aluno"`
	Notas []BoletimNota `json:"notas"`
	Media float64       `json:"media"`
}

// Boletim is the per-turma grade report, one row per enrolled aluno
// in stable nome order.
type Boletim struct {
	Turma  Turma          `json:"turma"`
	Linhas []BoletimLinha `json:"linhas"`
}

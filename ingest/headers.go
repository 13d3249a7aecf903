package ingest

import (
	"strings"

	"github.com/warp/vr-engine/generic"
)

// Column is a logical field of a source row.
type Column string

const (
	ColumnID              Column = "id"
	ColumnTitle           Column = "title"
	ColumnStatus          Column = "status"
	ColumnUnion           Column = "union"
	ColumnHireDate        Column = "hire_date"
	ColumnTerminationDate Column = "termination_date"
)

// headerAliases lists the normalized header texts accepted for each column.
var headerAliases = map[Column][]string{
	ColumnID:              {"MATRICULA", "ID", "EMPLOYEE ID", "REGISTRATION"},
	ColumnTitle:           {"TITULO DO CARGO", "CARGO", "TITLE", "JOB TITLE"},
	ColumnStatus:          {"DESCRICAO SITUACAO", "DESC. SITUACAO", "SITUACAO", "STATUS"},
	ColumnUnion:           {"SINDICATO", "UNION"},
	ColumnHireDate:        {"ADMISSAO", "DATA ADMISSAO", "HIRE DATE"},
	ColumnTerminationDate: {"DATA DESLIGAMENTO", "DESLIGAMENTO", "TERMINATION DATE"},
}

// NormalizeHeader trims, folds accents, upper-cases and collapses internal
// whitespace: " Descrição  Situação" becomes "DESCRICAO SITUACAO".
func NormalizeHeader(h string) string {
	return strings.ToUpper(strings.Join(strings.Fields(generic.Fold(h)), " "))
}

// columnIndex maps each known column to its position in header. The first
// matching header wins.
func columnIndex(header []string) map[Column]int {
	lookup := make(map[string]Column)
	for col, aliases := range headerAliases {
		for _, a := range aliases {
			lookup[a] = col
		}
	}

	idx := make(map[Column]int)
	for i, h := range header {
		col, ok := lookup[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	return idx
}

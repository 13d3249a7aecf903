package ingest_test

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/ingest"
)

func quietReader() *ingest.Reader {
	return &ingest.Reader{Logger: log.New(io.Discard, "", 0)}
}

func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// =============================================================================
// XLSX
// =============================================================================

func TestRead_XLSXWithDriftingHeaders(t *testing.T) {
	// GIVEN: An active export with accented, padded headers and a serial date
	// WHEN: It is read
	// THEN: Fields land in the right columns and the serial becomes a date

	data := workbook(t,
		[]interface{}{"MATRICULA ", "TITULO DO CARGO", "Descrição Situação", "Sindicato", "Admissão"},
		[]interface{}{34941, "Analista", "Trabalhando", "SINDPD SP", 45782},
		[]interface{}{"", "", "", "", ""},
		[]interface{}{34942, "Dev", "", "SINDPD RJ", "2025-05-12"},
	)

	table, issues, err := quietReader().Read("ATIVOS.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, benefit.SourceActive, table.Category)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, "34941", first.ID)
	assert.Equal(t, "Analista", first.Title)
	assert.Equal(t, "Trabalhando", first.Status)
	assert.Equal(t, "SINDPD SP", first.Union)
	assert.Equal(t, "2025-05-05", first.HireDate.String())

	assert.Equal(t, "2025-05-12", table.Rows[1].HireDate.String())
	assert.True(t, table.Rows[1].TerminationDate.IsZero())
}

func TestRead_UnreadableWorkbook(t *testing.T) {
	_, _, err := quietReader().Read("ATIVOS.xlsx", strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, generic.ErrUnreadableSource)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, _, err := quietReader().Read("notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, generic.ErrUnreadableSource)
}

// =============================================================================
// CSV
// =============================================================================

func TestRead_CSVSemicolonWithBOM(t *testing.T) {
	data := "\xef\xbb\xbfMATRICULA;DATA DESLIGAMENTO;CARGO\n" +
		"100;20/05/2025;Analista\n" +
		"101;31/13/2025;Dev\n"

	table, issues, err := quietReader().Read("DESLIGADOS.csv", strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, benefit.SourceTerminated, table.Category)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2025-05-20", table.Rows[0].TerminationDate.String())
	assert.True(t, table.Rows[1].TerminationDate.IsZero())

	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], generic.ErrInvalidDate)
	assert.Equal(t, 3, issues[0].Line)
	assert.Equal(t, string(ingest.ColumnTerminationDate), issues[0].Field)
}

func TestRead_CSVMissingColumnsAreBlank(t *testing.T) {
	table, _, err := quietReader().Read("FERIAS.csv", strings.NewReader("MATRICULA,OTHER\n100,x\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "100", table.Rows[0].ID)
	assert.Empty(t, table.Rows[0].Status)
	assert.Empty(t, table.Rows[0].Union)
}

func TestReadAll_StopsAtUnreadable(t *testing.T) {
	_, _, err := quietReader().ReadAll([]ingest.File{
		{Name: "ATIVOS.csv", Data: []byte("MATRICULA\n1\n")},
		{Name: "FERIAS.xlsx", Data: []byte("broken")},
	})
	assert.ErrorIs(t, err, generic.ErrUnreadableSource)
}

// =============================================================================
// DATES & HEADERS
// =============================================================================

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"45782", "2025-05-05"},
		{"45782.75", "2025-05-05"},
		{"2025-05-05", "2025-05-05"},
		{"2025-05-05 13:45:00", "2025-05-05"},
		{"05/05/2025", "2025-05-05"},
		{"5/5/2025", "2025-05-05"},
		{"20/05/2025 08:00", "2025-05-20"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ingest.ParseDate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	blank, err := ingest.ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, blank.IsZero())

	_, err = ingest.ParseDate("soon")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)

	_, err = ingest.ParseDate("-3")
	assert.ErrorIs(t, err, generic.ErrInvalidDate)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "DESCRICAO SITUACAO", ingest.NormalizeHeader("  Descrição   Situação "))
	assert.Equal(t, "MATRICULA", ingest.NormalizeHeader("MATRÍCULA "))
}

func TestReadPath_FeedsRegistry(t *testing.T) {
	// GIVEN: Workbooks on disk for active staff and vacations
	// THEN: The registry built from them reflects both

	dir := t.TempDir()
	active := workbook(t,
		[]interface{}{"MATRICULA", "Sindicato"},
		[]interface{}{1, "SINDPD SP"},
		[]interface{}{2, "SINDPD RJ"},
	)
	vacation := workbook(t, []interface{}{"MATRICULA"}, []interface{}{2})
	writeFile(t, dir, "ATIVOS.xlsx", active)
	writeFile(t, dir, "FÉRIAS.xlsx", vacation)

	rd := quietReader()
	var tables []benefit.SourceTable
	for _, name := range []string{"ATIVOS.xlsx", "FÉRIAS.xlsx"} {
		table, _, err := rd.ReadPath(filepath.Join(dir, name))
		require.NoError(t, err)
		tables = append(tables, table)
	}

	reg, _ := (&benefit.RegistryBuilder{Logger: log.New(io.Discard, "", 0)}).Build(tables)
	require.Equal(t, 2, reg.Len())
	rec, _ := reg.Get(2)
	assert.Equal(t, benefit.StatusVacation, rec.Status)
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestRead_IssueLinesMatchSheetRows(t *testing.T) {
	// GIVEN: A sheet whose header sits below two blank rows
	data := workbook(t,
		[]interface{}{""},
		[]interface{}{""},
		[]interface{}{"MATRICULA", "ADMISSAO"},
		[]interface{}{100, "01/05/2025"},
		[]interface{}{101, "not a date"},
	)

	// WHEN: The sheet is read
	_, issues, err := quietReader().Read("ADMISSAO.xlsx", bytes.NewReader(data))
	require.NoError(t, err)

	// THEN: The issue points at the row number shown in the spreadsheet
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Line)
	assert.Equal(t, string(ingest.ColumnHireDate), issues[0].Field)
}

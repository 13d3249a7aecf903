/*
Package ingest reads HR exports into benefit source tables.

PURPOSE:
  HR exports arrive as spreadsheets (or CSV) whose column names drift
  between files: "MATRICULA" vs "MATRICULA ", "Admissão" vs "ADMISSAO".
  The reader maps headers through alias sets, keeps every field optional
  and resolves dates at ingestion, so the registry builder only sees typed
  rows.

FORMATS:
  .xlsx  First sheet, raw cell values (numeric dates stay serials)
  .csv   Comma or semicolon separated, UTF-8 with optional BOM

ERRORS:
  A file that cannot be opened or parsed at all wraps
  generic.ErrUnreadableSource (fatal for the run). An unparseable date
  leaves the field empty and is reported as a generic.RowIssue.

USAGE:
  table, issues, err := ingest.ReadFile("ATIVOS.xlsx", f)

SEE ALSO:
  - benefit/registry.go: Consumes SourceTable
*/
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
)

// File is one named upload.
type File struct {
	Name string
	Data []byte
}

type Reader struct {
	Logger *log.Logger
}

// ReadFile reads one export with the default logger.
func ReadFile(name string, r io.Reader) (benefit.SourceTable, []*generic.RowIssue, error) {
	return (&Reader{}).Read(name, r)
}

// ReadPath opens and reads a file from disk.
func (rd *Reader) ReadPath(path string) (benefit.SourceTable, []*generic.RowIssue, error) {
	f, err := os.Open(path)
	if err != nil {
		return benefit.SourceTable{}, nil, fmt.Errorf("%w: %s: %v", generic.ErrUnreadableSource, path, err)
	}
	defer f.Close()
	return rd.Read(filepath.Base(path), f)
}

// ReadAll reads every file, stopping at the first unreadable one.
func (rd *Reader) ReadAll(files []File) ([]benefit.SourceTable, []*generic.RowIssue, error) {
	tables := make([]benefit.SourceTable, 0, len(files))
	var issues []*generic.RowIssue
	for _, f := range files {
		t, fileIssues, err := rd.Read(f.Name, bytes.NewReader(f.Data))
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, t)
		issues = append(issues, fileIssues...)
	}
	return tables, issues, nil
}

func (rd *Reader) Read(name string, r io.Reader) (benefit.SourceTable, []*generic.RowIssue, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return benefit.SourceTable{}, nil, fmt.Errorf("%w: %s: %v", generic.ErrUnreadableSource, name, err)
	}

	table, issues := rd.buildTable(name, rows)
	rd.logger().Printf("[Ingest] %s: %d rows as %s", name, len(table.Rows), categoryLabel(table.Category))
	return table, issues, nil
}

func categoryLabel(c benefit.SourceCategory) string {
	if c == benefit.SourceUnknown {
		return "UNCLASSIFIED"
	}
	return string(c)
}

// =============================================================================
// FORMAT READERS
// =============================================================================

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// =============================================================================
// TABLE BUILDING
// =============================================================================

func (rd *Reader) buildTable(name string, rows [][]string) (benefit.SourceTable, []*generic.RowIssue) {
	table := benefit.SourceTable{Label: name, Category: benefit.ClassifySource(name)}

	headerAt := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return table, nil
	}

	cols := columnIndex(rows[headerAt])
	if _, ok := cols[ColumnID]; !ok {
		rd.logger().Printf("[Ingest] %s: no ID column in header %v", name, rows[headerAt])
	}

	var issues []*generic.RowIssue
	for i, row := range rows[headerAt+1:] {
		if blankRow(row) {
			continue
		}
		line := headerAt + i + 2 // 1-based sheet row
		cell := func(c Column) string {
			j, ok := cols[c]
			if !ok || j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}
		date := func(c Column) generic.TimePoint {
			raw := cell(c)
			tp, err := ParseDate(raw)
			if err != nil {
				issue := &generic.RowIssue{Source: name, Line: line, Field: string(c), Value: raw, Err: err}
				rd.logger().Printf("[Ingest] %v", issue)
				issues = append(issues, issue)
			}
			return tp
		}

		table.Rows = append(table.Rows, benefit.SourceRow{
			Line:            line,
			ID:              cell(ColumnID),
			Title:           cell(ColumnTitle),
			Status:          cell(ColumnStatus),
			Union:           cell(ColumnUnion),
			HireDate:        date(ColumnHireDate),
			TerminationDate: date(ColumnTerminationDate),
		})
	}
	return table, issues
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (rd *Reader) logger() *log.Logger {
	if rd.Logger != nil {
		return rd.Logger
	}
	return log.Default()
}

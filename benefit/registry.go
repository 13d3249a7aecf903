/*
registry.go - Consolidation of HR exports into one employee registry

PURPOSE:
  HR delivers one export per situation (active staff, hires, vacations,
  leaves, terminations, ...). BuildRegistry merges them into exactly one
  record per employee ID.

PROCESSING ORDER (fixed, significant):
  1. ACTIVE                 seed the registry
  2. APPRENTICE/INTERNSHIP  insert or overwrite a minimal record
  3. HIRE                   patch hire date, or insert a NEW_HIRE record
  4. VACATION               patch status for known IDs only
  5. LEAVE                  patch status to the leave description, known IDs only
  6. TERMINATED             patch status + date, or insert a TERMINATED record
  7. ABROAD                 patch location for known IDs only

  Tables of one category are applied in input order.

ROW ERRORS:
  Rows without an ID are skipped silently. A non-integer ID skips that row
  and is recorded as a generic.RowIssue; the load never fails as a whole.

SEE ALSO:
  - ingest/: Produces SourceTable values from files
*/
package benefit

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/warp/vr-engine/generic"
)

// =============================================================================
// SOURCE TABLES
// =============================================================================

type SourceCategory string

const (
	SourceActive     SourceCategory = "ACTIVE"
	SourceApprentice SourceCategory = "APPRENTICE"
	SourceInternship SourceCategory = "INTERNSHIP"
	SourceHire       SourceCategory = "HIRE"
	SourceVacation   SourceCategory = "VACATION"
	SourceLeave      SourceCategory = "LEAVE"
	SourceTerminated SourceCategory = "TERMINATED"
	SourceAbroad     SourceCategory = "ABROAD"
	SourceUnknown    SourceCategory = ""
)

// sourceKeywords is checked in order; ACTIVE first so "ATIVOS" files never
// fall into a later bucket.
var sourceKeywords = []struct {
	category SourceCategory
	keywords []string
}{
	{SourceActive, []string{"ativos", "active"}},
	{SourceApprentice, []string{"aprendiz", "apprentice"}},
	{SourceInternship, []string{"estagio", "internship"}},
	{SourceHire, []string{"admissao", "hire"}},
	{SourceVacation, []string{"ferias", "vacation"}},
	{SourceLeave, []string{"afastamento", "leave"}},
	{SourceTerminated, []string{"desligado", "terminated", "termination"}},
	{SourceAbroad, []string{"exterior", "abroad"}},
}

// ClassifySource maps a file name or label to its category.
func ClassifySource(label string) SourceCategory {
	for _, sk := range sourceKeywords {
		if generic.ContainsAny(label, sk.keywords...) {
			return sk.category
		}
	}
	return SourceUnknown
}

// SourceRow holds the optional fields of one exported row. Blank strings and
// zero dates mean the column was missing or empty.
type SourceRow struct {
	Line            int
	ID              string
	Title           string
	Status          string
	Union           string
	HireDate        generic.TimePoint
	TerminationDate generic.TimePoint
}

type SourceTable struct {
	Label    string
	Category SourceCategory // empty: classified from Label
	Rows     []SourceRow
}

func (t SourceTable) category() SourceCategory {
	if t.Category != SourceUnknown {
		return t.Category
	}
	return ClassifySource(t.Label)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the consolidated, insertion-ordered employee set.
// It is read-only once built.
type Registry struct {
	records map[generic.EmployeeID]*EmployeeRecord
	order   []generic.EmployeeID
}

func newRegistry() *Registry {
	return &Registry{records: make(map[generic.EmployeeID]*EmployeeRecord)}
}

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) Get(id generic.EmployeeID) (EmployeeRecord, bool) {
	rec, ok := r.records[id]
	if !ok {
		return EmployeeRecord{}, false
	}
	return *rec, true
}

// Employees returns copies of all records in first-insertion order.
func (r *Registry) Employees() []EmployeeRecord {
	out := make([]EmployeeRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

func (r *Registry) lookup(id generic.EmployeeID) *EmployeeRecord {
	return r.records[id]
}

// put inserts or replaces; a replaced ID keeps its original position.
func (r *Registry) put(rec EmployeeRecord) {
	if _, ok := r.records[rec.ID]; !ok {
		r.order = append(r.order, rec.ID)
	}
	r.records[rec.ID] = &rec
}

// LoadReport summarizes one consolidation.
type LoadReport struct {
	Tables  int
	Applied int
	Dropped int // rows for IDs not in the registry
	Skipped int // rows without an ID or with an invalid one
	Ignored []string
	Issues  []*generic.RowIssue
}

// =============================================================================
// BUILDER
// =============================================================================

var processingOrder = []SourceCategory{
	SourceActive,
	SourceApprentice,
	SourceInternship,
	SourceHire,
	SourceVacation,
	SourceLeave,
	SourceTerminated,
	SourceAbroad,
}

type RegistryBuilder struct {
	Logger *log.Logger
}

// BuildRegistry consolidates tables with the default logger.
func BuildRegistry(tables []SourceTable) (*Registry, LoadReport) {
	return (&RegistryBuilder{}).Build(tables)
}

func (b *RegistryBuilder) Build(tables []SourceTable) (*Registry, LoadReport) {
	reg := newRegistry()
	report := LoadReport{}

	byCategory := make(map[SourceCategory][]SourceTable)
	for _, t := range tables {
		cat := t.category()
		if cat == SourceUnknown {
			b.logger().Printf("[Registry] ignoring unclassified source %q", t.Label)
			report.Ignored = append(report.Ignored, t.Label)
			continue
		}
		byCategory[cat] = append(byCategory[cat], t)
	}

	// Internship rows are tagged INTERN, apprentice rows APPRENTICE; both
	// share step 2 but APPRENTICE tables run first.
	for _, cat := range processingOrder {
		for _, t := range byCategory[cat] {
			report.Tables++
			for _, row := range t.Rows {
				b.applyRow(reg, &report, cat, t.Label, row)
			}
		}
	}

	b.logger().Printf("[Registry] %d employees from %d tables (%d rows applied, %d dropped, %d skipped)",
		reg.Len(), report.Tables, report.Applied, report.Dropped, report.Skipped)
	return reg, report
}

func (b *RegistryBuilder) applyRow(reg *Registry, report *LoadReport, cat SourceCategory, label string, row SourceRow) {
	if strings.TrimSpace(row.ID) == "" {
		report.Skipped++
		return
	}
	id, err := ParseEmployeeID(row.ID)
	if err != nil {
		issue := &generic.RowIssue{Source: label, Line: row.Line, Field: "id", Value: row.ID, Err: err}
		b.logger().Printf("[Registry] skipping row: %v", issue)
		report.Issues = append(report.Issues, issue)
		report.Skipped++
		return
	}

	existing := reg.lookup(id)
	switch cat {
	case SourceActive:
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = StatusWorking
		}
		reg.put(EmployeeRecord{
			ID:       id,
			Title:    row.Title,
			Status:   status,
			Union:    row.Union,
			Category: CategoryActive,
			HireDate: row.HireDate,
			Location: LocationDomestic,
		})

	case SourceApprentice, SourceInternship:
		tag := CategoryApprentice
		if cat == SourceInternship {
			tag = CategoryIntern
		}
		reg.put(EmployeeRecord{
			ID:       id,
			Title:    row.Title,
			Status:   StatusWorking,
			Category: tag,
			Location: LocationDomestic,
		})

	case SourceHire:
		if existing != nil {
			existing.HireDate = row.HireDate
			break
		}
		reg.put(EmployeeRecord{
			ID:       id,
			Title:    row.Title,
			Status:   StatusWorking,
			Union:    row.Union,
			Category: CategoryNewHire,
			HireDate: row.HireDate,
			Location: LocationDomestic,
		})

	case SourceVacation, SourceLeave, SourceAbroad:
		if existing == nil {
			report.Dropped++
			return
		}
		switch cat {
		case SourceVacation:
			existing.Status = StatusVacation
		case SourceLeave:
			existing.Status = row.Status
			if strings.TrimSpace(existing.Status) == "" {
				existing.Status = StatusLeave
			}
		case SourceAbroad:
			existing.Location = LocationAbroad
		}

	case SourceTerminated:
		if existing != nil {
			existing.Status = StatusTerminated
			existing.TerminationDate = row.TerminationDate
			break
		}
		reg.put(EmployeeRecord{
			ID:              id,
			Title:           row.Title,
			Status:          StatusTerminated,
			Union:           row.Union,
			Category:        CategoryTerminated,
			TerminationDate: row.TerminationDate,
			Location:        LocationDomestic,
		})
	}
	report.Applied++
}

func (b *RegistryBuilder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// ParseEmployeeID accepts integer text, including the "123.0" and
// exponent forms spreadsheets produce for numeric cells.
func ParseEmployeeID(raw string) (generic.EmployeeID, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return generic.EmployeeID(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %q", generic.ErrInvalidEmployeeID, raw)
	}
	return generic.EmployeeID(int64(f)), nil
}

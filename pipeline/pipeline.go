/*
pipeline.go - One VR run, from uploaded files to the workbook

PURPOSE:
  Chains the stages of a run and decides what is fatal:

    credential -> ingest -> registry -> calculate -> report -> history

  A missing credential, an unreadable file, an empty registry or a panic
  halts the run with a *generic.FatalError before any output is produced.
  Row problems and adjudication failures degrade into row issues and
  fallback decisions and never stop the run.

USAGE:
  p, err := pipeline.FromConfig(ctx, cfg)
  defer p.Close()
  out, err := p.Run(ctx, period, files)
  if err != nil {
      fmt.Print(report.ErrorReport(err))
  }

SEE ALSO:
  - benefit/calculator.go: Per-employee computation
  - report/workbook.go: Output artifact
*/
package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/ingest"
	"github.com/warp/vr-engine/report"
	"github.com/warp/vr-engine/store/sqlite"
)

// Stage names reported in FatalError.Stage.
const (
	StageCredential = "credential"
	StageIngest     = "ingest"
	StageRegistry   = "registry"
	StageCalculate  = "calculate"
	StageReport     = "report"
	StageHistory    = "history"
	StagePanic      = "panic"
)

// AdjudicatorFactory returns the remote adjudicator for a process month.
type AdjudicatorFactory func(period generic.Period) benefit.Adjudicator

// RunRecorder keeps run summaries.
type RunRecorder interface {
	SaveRun(ctx context.Context, r sqlite.RunRecord) error
}

type Pipeline struct {
	// Adjudicator is nil when no credential is configured; every run then
	// fails at the credential stage.
	Adjudicator AdjudicatorFactory
	Unions      *benefit.UnionTable
	Policy      generic.Policy
	Timeout     time.Duration
	Workers     int
	Progress    benefit.ProgressFunc
	History     RunRecorder
	Logger      *log.Logger

	// Catalog is the SQLite store opened by FromConfig, if any.
	Catalog *sqlite.Store

	now func() time.Time
}

// Outcome is everything a successful run produces.
type Outcome struct {
	RunID   string
	Period  generic.Period
	Policy  generic.Policy
	Results []benefit.Result
	Report  *report.Report
	Load    benefit.LoadReport
	Summary string

	// Issues holds ingest and consolidation row issues.
	Issues []*generic.RowIssue
}

// Run executes one run with the pipeline's policy.
func (p *Pipeline) Run(ctx context.Context, period generic.Period, files []ingest.File) (*Outcome, error) {
	return p.RunWithPolicy(ctx, period, p.Policy, files)
}

// RunWithPolicy executes one run. Every returned error is a
// *generic.FatalError.
func (p *Pipeline) RunWithPolicy(ctx context.Context, period generic.Period, policy generic.Policy, files []ingest.File) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &generic.FatalError{
				Stage: StagePanic,
				Err:   fmt.Errorf("unexpected failure: %v", r),
				Stack: debug.Stack(),
			}
			p.logger().Printf("[Pipeline] run aborted: %v", r)
		}
	}()

	if p.Adjudicator == nil {
		return nil, p.fatal(StageCredential, generic.ErrMissingCredential)
	}
	if p.Unions == nil {
		return nil, p.fatal(StageCalculate, fmt.Errorf("no union table configured"))
	}

	runID := uuid.NewString()
	p.logger().Printf("[Pipeline] run %s: %d files for %s (%s)", runID, len(files), period.Label(), policy.ID)

	reader := &ingest.Reader{Logger: p.Logger}
	tables, issues, err := reader.ReadAll(files)
	if err != nil {
		return nil, p.fatal(StageIngest, err)
	}

	builder := &benefit.RegistryBuilder{Logger: p.Logger}
	reg, load := builder.Build(tables)
	issues = append(issues, load.Issues...)
	if reg.Len() == 0 {
		return nil, p.fatal(StageRegistry, fmt.Errorf("%w: %d files, %d rows skipped", generic.ErrEmptyRegistry, len(files), load.Skipped))
	}

	guard := benefit.NewGuarded(p.Adjudicator(period), policy.Ruleset, p.Timeout)
	guard.Logger = p.Logger
	calc, err := benefit.NewCalculator(guard, p.Unions, period, policy)
	if err != nil {
		return nil, p.fatal(StageCalculate, err)
	}
	calc.Workers = p.Workers
	calc.Progress = p.Progress
	calc.Logger = p.Logger

	results, err := calc.Run(ctx, reg)
	if err != nil {
		return nil, p.fatal(StageCalculate, err)
	}

	rep, err := report.Build(results, period, policy)
	if err != nil {
		return nil, p.fatal(StageReport, err)
	}

	out = &Outcome{
		RunID:   runID,
		Period:  period,
		Policy:  policy,
		Results: results,
		Report:  rep,
		Load:    load,
		Summary: report.Summary(rep),
		Issues:  issues,
	}

	if p.History != nil {
		record := sqlite.RunRecord{
			ID:        runID,
			Period:    period.Label(),
			PolicyID:  string(policy.ID),
			Employees: len(results),
			Payable:   rep.PayableCount,
			Total:     rep.Total,
			CreatedAt: p.clock(),
		}
		if err := p.History.SaveRun(ctx, record); err != nil {
			// The workbook is already built; losing the history line is not fatal.
			p.logger().Printf("[Pipeline] run %s: failed to save history: %v", runID, err)
		}
	}

	p.logger().Printf("[Pipeline] run %s: %d payable, total %s", runID, rep.PayableCount, rep.Total)
	return out, nil
}

func (p *Pipeline) fatal(stage string, err error) error {
	fe := generic.NewFatalError(stage, err)
	p.logger().Printf("[Pipeline] %s failed: %v", stage, err)
	return fe
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Close releases the catalog store, if one was opened.
func (p *Pipeline) Close() error {
	if p.Catalog != nil {
		return p.Catalog.Close()
	}
	return nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

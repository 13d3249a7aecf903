/*
main.go - Command-line VR run

PURPOSE:
  Computes one competence month from HR exports on disk and writes the
  two-sheet workbook next to a markdown summary on stdout. This is the
  batch counterpart of cmd/server.

USAGE:
  vrcalc [flags] FILE...

  Each FILE is classified by its name (ATIVOS, FERIAS, DESLIGADOS, ...).

COMMAND-LINE FLAGS:
  -config   YAML configuration file (optional)
  -month    Competence month (overrides process.month)
  -year     Competence year (overrides process.year)
  -policy   Registered policy ID (overrides process.policy)
  -mode     Output mode: cost_split | plain
  -workers  Concurrent adjudication calls
  -out      Output directory for the workbook (default: .)
  -quiet    No progress on stderr

ENVIRONMENT:
  API_KEY   Adjudication service credential (required)

EXIT CODES:
  0  Workbook written
  1  Run failed; the error report is printed on stderr
  2  Invalid usage or configuration

EXAMPLES:
  API_KEY=... vrcalc -month=5 -year=2025 exports/*.xlsx
  vrcalc -config=vr.yaml -mode=plain -out=out ATIVOS.csv FERIAS.csv

SEE ALSO:
  - pipeline/pipeline.go: The run itself
  - report/summary.go: Summary and error report
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/warp/vr-engine/config"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/ingest"
	"github.com/warp/vr-engine/pipeline"
	"github.com/warp/vr-engine/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vrcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	month := fs.Int("month", 0, "Competence month (1-12)")
	year := fs.Int("year", 0, "Competence year")
	policyID := fs.String("policy", "", "Policy ID (proportional-v2, full-days-v1)")
	mode := fs.String("mode", "", "Output mode (cost_split, plain)")
	workers := fs.Int("workers", 0, "Concurrent adjudication calls")
	outDir := fs.String("out", ".", "Output directory")
	quiet := fs.Bool("quiet", false, "Do not report progress")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: vrcalc [flags] FILE...")
		fs.PrintDefaults()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *month != 0 {
		cfg.Process.Month = *month
	}
	if *year != 0 {
		cfg.Process.Year = *year
	}
	if *policyID != "" {
		cfg.Process.Policy = *policyID
		cfg.Process.PolicyFile = ""
	}
	if *mode != "" {
		if _, err := generic.ParseOutputMode(*mode); err != nil {
			fmt.Fprintf(stderr, "vrcalc: -mode: %v\n", err)
			return 2
		}
		cfg.Process.OutputMode = *mode
	}
	if *workers != 0 {
		cfg.Adjudicator.Workers = *workers
	}

	period, err := cfg.Period()
	if err != nil {
		fmt.Fprintf(stderr, "vrcalc: %v (set -month and -year)\n", err)
		return 2
	}

	files := make([]ingest.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprint(stderr, report.ErrorReport(generic.NewFatalError(pipeline.StageIngest,
				fmt.Errorf("%w: %v", generic.ErrUnreadableSource, err))))
			return 1
		}
		files = append(files, ingest.File{Name: filepath.Base(path), Data: data})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer p.Close()

	p.Logger = log.New(stderr, "", log.LstdFlags)
	if *quiet {
		p.Logger = log.New(io.Discard, "", 0)
	} else {
		p.Progress = func(done, total int, id generic.EmployeeID) {
			fmt.Fprintf(stderr, "\r%3d%% (%d/%d) employee %s", done*100/total, done, total, id)
			if done == total {
				fmt.Fprintln(stderr)
			}
		}
	}

	out, err := p.Run(ctx, period, files)
	if err != nil {
		fmt.Fprint(stderr, report.ErrorReport(err))
		return 1
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "vrcalc: %v\n", err)
		return 1
	}
	dest := filepath.Join(*outDir, out.Report.FileName)
	if err := os.WriteFile(dest, out.Report.Workbook, 0o644); err != nil {
		fmt.Fprintf(stderr, "vrcalc: write workbook: %v\n", err)
		return 1
	}

	fmt.Fprint(stdout, out.Summary)
	if len(out.Issues) > 0 {
		fmt.Fprintf(stdout, "- Row issues: %d\n", len(out.Issues))
		for _, issue := range out.Issues {
			fmt.Fprintf(stdout, "  - %s\n", issue.Error())
		}
	}
	return 0
}

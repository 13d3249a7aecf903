package report

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/warp/vr-engine/generic"
)

var printer = message.NewPrinter(language.English)

// FormatBRL renders an amount as "R$ 1,234.50".
func FormatBRL(m generic.Money) string {
	return printer.Sprintf("R$ %.2f", m.Float64())
}

// Summary renders the run outcome as markdown.
func Summary(rep *Report) string {
	var b strings.Builder
	printer.Fprintf(&b, "## VR %s\n\n", rep.Period.Label())
	printer.Fprintf(&b, "- Payable employees: %d\n", rep.PayableCount)
	printer.Fprintf(&b, "- Not eligible: %d\n", len(rep.Ineligible))
	printer.Fprintf(&b, "- Total: %s\n", FormatBRL(rep.Total))
	printer.Fprintf(&b, "- File: `%s`\n", rep.FileName)
	return b.String()
}

// ErrorReport renders a fatal error, its wrap chain and, when available,
// the captured stack.
func ErrorReport(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Run failed\n\n")

	var fatal *generic.FatalError
	if errors.As(err, &fatal) {
		printer.Fprintf(&b, "**Stage:** %s\n\n", fatal.Stage)
	}
	printer.Fprintf(&b, "**Error:** %s\n\n", err.Error())

	b.WriteString("### Cause chain\n\n")
	for e := err; e != nil; e = errors.Unwrap(e) {
		printer.Fprintf(&b, "1. %s\n", e.Error())
	}

	if fatal != nil && len(fatal.Stack) > 0 {
		b.WriteString("\n### Stack\n\n```\n")
		b.Write(fatal.Stack)
		b.WriteString("\n```\n")
	}
	return b.String()
}

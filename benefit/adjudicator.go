/*
adjudicator.go - Eligibility adjudication

PURPOSE:
  Decides whether an employee is entitled to VR in the process month.
  The primary path is a remote model (see the gemini package); the
  deterministic rules below are used whenever the remote path fails.

KEY TYPES:
  Adjudicator:     Anything that can decide, possibly failing
  Decider:         Decides without failing (what the calculator needs)
  RuleAdjudicator: Deterministic rules, one of two versioned rulesets
  Guarded:         Wraps an Adjudicator, substitutes the rules on failure

RULE ORDER (priority-v2, first match wins):
  director > intern > apprentice > vacation > abroad > maternity > leave >
  terminated > default

RULE ORDER (legacy-v1):
  apprentice > intern > terminated > vacation > leave > maternity > default

SEE ALSO:
  - prompt.go: Prompt construction and reply parsing for remote adapters
  - calculator.go: Consumes decisions
*/
package benefit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/warp/vr-engine/generic"
)

// Adjudicator decides eligibility for one employee. Implementations may fail.
type Adjudicator interface {
	Adjudicate(ctx context.Context, emp EmployeeRecord) (Decision, error)
}

// AdjudicatorFunc adapts a function to the Adjudicator interface.
type AdjudicatorFunc func(ctx context.Context, emp EmployeeRecord) (Decision, error)

func (f AdjudicatorFunc) Adjudicate(ctx context.Context, emp EmployeeRecord) (Decision, error) {
	return f(ctx, emp)
}

// Decider always yields a decision.
type Decider interface {
	Decide(ctx context.Context, emp EmployeeRecord) Decision
}

// =============================================================================
// DETERMINISTIC RULES
// =============================================================================

type field int

const (
	fieldTitle field = iota
	fieldCategory
	fieldStatus
	fieldLocation
)

type rule struct {
	id       RuleID
	fields   []field
	keywords []string
	decision Decision
}

func (r rule) matches(emp EmployeeRecord) bool {
	for _, f := range r.fields {
		var text string
		switch f {
		case fieldTitle:
			text = emp.Title
		case fieldCategory:
			text = string(emp.Category)
		case fieldStatus:
			text = emp.Status
		case fieldLocation:
			text = string(emp.Location)
		}
		if generic.ContainsAny(text, r.keywords...) {
			return true
		}
	}
	return false
}

var priorityV2Rules = []rule{
	{RuleDirector, []field{fieldTitle}, []string{"director", "diretor"},
		Decision{Eligible: false, Reason: "director position not eligible"}},
	{RuleIntern, []field{fieldCategory}, []string{"intern", "estagi"},
		Decision{Eligible: false, Reason: "intern not eligible"}},
	{RuleApprentice, []field{fieldCategory}, []string{"apprentice", "aprendiz"},
		Decision{Eligible: false, Reason: "apprentice not eligible"}},
	{RuleVacation, []field{fieldStatus}, []string{"vacation", "ferias"},
		Decision{Eligible: false, Reason: "employee on vacation"}},
	{RuleAbroad, []field{fieldLocation}, []string{"abroad", "exterior"},
		Decision{Eligible: false, Reason: "employee working abroad"}},
	{RuleMaternity, []field{fieldStatus}, []string{"maternity", "maternidade"},
		Decision{Eligible: true, Reason: "maternity leave (subject to collective agreement)"}},
	{RuleLeave, []field{fieldStatus}, []string{"leave", "medical aid", "afastado", "licenca", "auxilio"},
		Decision{Eligible: false, Reason: "employee on leave"}},
	{RuleTerminated, []field{fieldCategory, fieldStatus}, []string{"terminated", "desligado"},
		Decision{Eligible: true, Reason: "terminated employee (proportional calculation applies)"}},
}

var legacyV1Rules = []rule{
	{RuleApprentice, []field{fieldCategory}, []string{"apprentice", "aprendiz"},
		Decision{Eligible: false, Reason: "apprentice not entitled to VR", LegalBasis: "Lei 10.097/2000"}},
	{RuleIntern, []field{fieldCategory}, []string{"intern", "estagi"},
		Decision{Eligible: false, Reason: "intern not entitled to VR", LegalBasis: "Lei 11.788/2008"}},
	{RuleTerminated, []field{fieldCategory, fieldStatus}, []string{"terminated", "desligado"},
		Decision{Eligible: false, Reason: "terminated employee", LegalBasis: "CLT - Sem vínculo"}},
	{RuleVacation, []field{fieldStatus}, []string{"vacation", "ferias"},
		Decision{Eligible: false, Reason: "VR suspended during vacation", LegalBasis: "CLT Art. 458"}},
	{RuleLeave, []field{fieldStatus}, []string{"afastado", "auxilio", "medical aid", "sick", "inss"},
		Decision{Eligible: false, Reason: "VR suspended during leave", LegalBasis: "CLT - Afastamento INSS"}},
	{RuleMaternity, []field{fieldStatus}, []string{"maternity", "maternidade"},
		Decision{Eligible: true, Reason: "keeps entitlement during maternity leave", LegalBasis: "Lei 11.770/2008"}},
}

var (
	priorityV2Default = Decision{Eligible: true, Reason: "active employee"}
	legacyV1Default   = Decision{Eligible: true, Reason: "active employee", LegalBasis: "CLT + Acordo Sindical"}
)

// RuleAdjudicator evaluates one of the deterministic rulesets.
// The zero value uses priority-v2.
type RuleAdjudicator struct {
	Ruleset generic.FallbackRuleset
}

// Decide never fails.
func (r RuleAdjudicator) Decide(_ context.Context, emp EmployeeRecord) Decision {
	rules, fallback := priorityV2Rules, priorityV2Default
	if r.Ruleset == generic.RulesetLegacyV1 {
		rules, fallback = legacyV1Rules, legacyV1Default
	}

	for _, rl := range rules {
		if rl.matches(emp) {
			d := rl.decision
			d.Source = SourceFallback
			d.Rule = rl.id
			return d
		}
	}
	d := fallback
	d.Source = SourceFallback
	d.Rule = RuleDefault
	return d
}

func (r RuleAdjudicator) Adjudicate(ctx context.Context, emp EmployeeRecord) (Decision, error) {
	return r.Decide(ctx, emp), nil
}

// =============================================================================
// GUARD - Remote first, rules on any failure
// =============================================================================

// Guarded calls Primary once per employee. Errors, timeouts and panics are
// logged and answered by Fallback. Nothing is retried.
type Guarded struct {
	Primary  Adjudicator
	Fallback RuleAdjudicator
	Timeout  time.Duration // zero means no extra deadline
	Logger   *log.Logger
}

// NewGuarded wraps primary with the rules of the given ruleset.
func NewGuarded(primary Adjudicator, ruleset generic.FallbackRuleset, timeout time.Duration) *Guarded {
	return &Guarded{Primary: primary, Fallback: RuleAdjudicator{Ruleset: ruleset}, Timeout: timeout}
}

func (g *Guarded) Decide(ctx context.Context, emp EmployeeRecord) Decision {
	if g.Primary == nil {
		return g.Fallback.Decide(ctx, emp)
	}
	d, err := g.call(ctx, emp)
	if err != nil {
		g.logger().Printf("[Adjudicator] employee %s: %v, using fallback rules", emp.ID, err)
		return g.Fallback.Decide(ctx, emp)
	}
	d.Source = SourceRemote
	d.Rule = ""
	return d
}

func (g *Guarded) call(ctx context.Context, emp EmployeeRecord) (d Decision, err error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", generic.ErrAdjudicationFailed, r)
		}
	}()

	d, err = g.Primary.Adjudicate(ctx, emp)
	if err != nil {
		if errors.Is(err, generic.ErrAdjudicationFailed) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("%w: %w", generic.ErrAdjudicationFailed, err)
	}
	return d, nil
}

func (g *Guarded) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}

var (
	_ Decider     = (*Guarded)(nil)
	_ Decider     = RuleAdjudicator{}
	_ Adjudicator = RuleAdjudicator{}
)

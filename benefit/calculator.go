/*
calculator.go - Per-employee VR computation

PURPOSE:
  Turns one employee record into one Result: resolve the union, adjudicate,
  apply the policy's payment formula, multiply by the daily rate.

PROPORTIONAL FORMULA (proportional-v2):
  eligible + maternity                 -> base days, paid in full
  eligible, no hire/termination in month -> base days
  terminated in month on/before cutoff -> not eligible, zero
  otherwise                            -> working days in
                                          [hire or month start, termination or month end]
                                          minus union holidays

FULL-DAYS FORMULA (full-days-v1):
  eligible -> base days

CONCURRENCY:
  Run processes the registry with at most Workers concurrent employees.
  Results are returned in registry order whatever the worker count.

SEE ALSO:
  - generic/time.go: ProportionalWorkDays
  - adjudicator.go: Decisions
*/
package benefit

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/warp/vr-engine/generic"
)

const (
	ReasonMaternityFull      = "maternity leave - paid in full per agreement"
	ReasonFullPayment        = "full payment"
	ReasonProportionalHire   = "proportional payment - hire"
	ReasonProportionalTermin = "proportional payment - termination"
)

// ReasonTerminatedBefore is the reason for a termination on or before the
// cutoff day.
func ReasonTerminatedBefore(cutoff int) string {
	return fmt.Sprintf("terminated before day %d", cutoff)
}

// ProgressFunc observes Run. Calls are serialized.
type ProgressFunc func(done, total int, id generic.EmployeeID)

type Calculator struct {
	Decider  Decider
	Unions   *UnionTable
	Period   generic.Period
	Policy   generic.Policy
	Workers  int
	Progress ProgressFunc
	Logger   *log.Logger
}

// NewCalculator validates the collaborators. A nil decider uses the
// policy's deterministic ruleset.
func NewCalculator(decider Decider, unions *UnionTable, period generic.Period, policy generic.Policy) (*Calculator, error) {
	if unions == nil {
		return nil, fmt.Errorf("calculator: union table required")
	}
	if period.Start.IsZero() {
		return nil, fmt.Errorf("calculator: %w", generic.ErrInvalidPeriod)
	}
	if decider == nil {
		decider = RuleAdjudicator{Ruleset: policy.Ruleset}
	}
	return &Calculator{Decider: decider, Unions: unions, Period: period, Policy: policy, Workers: 1}, nil
}

// Compute always returns a result for the employee.
func (c *Calculator) Compute(ctx context.Context, emp EmployeeRecord) Result {
	card, defaulted := c.Unions.Resolve(emp.Union)
	if defaulted {
		c.logger().Printf("[Calculator] employee %s: union %q not recognized, using %s",
			emp.ID, emp.Union, card.Code)
	}

	decision := c.Decider.Decide(ctx, emp)
	res := Result{
		EmployeeID:     emp.ID,
		Eligible:       decision.Eligible,
		Reason:         decision.Reason,
		LegalBasis:     decision.LegalBasis,
		Source:         decision.Source,
		DailyRate:      card.DailyRate,
		Total:          generic.ZeroMoney(),
		UnionLabel:     emp.Union,
		UnionCode:      card.Code,
		UnionDefaulted: defaulted,
		HireDate:       emp.HireDate,
	}
	if !res.Eligible {
		return res
	}

	switch c.Policy.Formula {
	case generic.FormulaFullDays:
		res.Days = card.BaseDays
	default:
		c.applyProportional(&res, emp, card)
	}

	if res.Eligible {
		res.Total = card.DailyRate.MulInt(res.Days).Round()
	} else {
		res.Days = 0
	}
	return res
}

func (c *Calculator) applyProportional(res *Result, emp EmployeeRecord, card UnionConfig) {
	if generic.ContainsAny(emp.Status, "maternity", "maternidade") {
		res.Days = card.BaseDays
		res.Reason = ReasonMaternityFull
		return
	}

	hired := c.Period.Has(emp.HireDate)
	terminated := c.Period.Has(emp.TerminationDate)
	if !hired && !terminated {
		res.Days = card.BaseDays
		res.Reason = ReasonFullPayment
		return
	}

	if cutoff := c.Policy.TerminationCutoffDay; terminated && cutoff > 0 && emp.TerminationDate.Day() <= cutoff {
		res.Eligible = false
		res.Reason = ReasonTerminatedBefore(cutoff)
		return
	}

	start, end := c.Period.Start, c.Period.End
	res.Reason = ReasonProportionalHire
	if hired {
		start = emp.HireDate
	}
	if terminated {
		end = emp.TerminationDate
		res.Reason = ReasonProportionalTermin
	}
	res.Days = generic.ProportionalWorkDays(c.Period.Month(), c.Period.Year(), start, end, card.Holidays)
}

// Run computes every employee of the registry. It only fails when ctx is
// cancelled.
func (c *Calculator) Run(ctx context.Context, reg *Registry) ([]Result, error) {
	employees := reg.Employees()
	results := make([]Result, len(employees))

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, emp := range employees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Compute(gctx, emp)

			mu.Lock()
			done++
			if c.Progress != nil {
				c.Progress(done, len(employees), emp.ID)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}

	c.logger().Printf("[Calculator] %d employees computed for %s", len(results), c.Period.Label())
	return results, nil
}

func (c *Calculator) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

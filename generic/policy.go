/*
policy.go - Versioned rule-and-formula policies

PURPOSE:
  A Policy is the complete ruleset for one benefit run: which payment
  formula applies, which fallback eligibility ruleset is used when the
  remote adjudicator is unavailable, and how the payable sheet is laid out.
  Two historical front ends computed VR differently; each behavior is a
  named, versioned policy instead of an implicit code path.

KEY CONCEPTS:
  - PaymentFormula: proportional (hire/termination aware) or full base days
  - FallbackRuleset: the priority order of the deterministic rules
  - OutputMode: cost split (80/20 employer/employee) or plain totals
  - TerminationCutoffDay: terminations on or before this day pay nothing

REGISTRY:
  Domain packages register their policies on init(); configuration refers
  to them by ID.

  // In benefit/policies.go
  func init() {
      generic.RegisterPolicy(ProportionalPolicy())
  }

  policy, err := generic.LookupPolicy("proportional-v2")

SEE ALSO:
  - benefit/policies.go: Registered policies
  - benefit/calculator.go: Applies PaymentFormula
  - report/workbook.go: Applies OutputMode
*/
package generic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POLICY - Rules governing one benefit run
// =============================================================================

type PolicyID string

// PaymentFormula determines how paid days are computed for eligible employees.
type PaymentFormula string

const (
	// FormulaProportional pays base days for full months and counts working
	// days for months with a hire or termination.
	FormulaProportional PaymentFormula = "proportional"

	// FormulaFullDays always pays the union's base days.
	FormulaFullDays PaymentFormula = "full_days"
)

// FallbackRuleset selects the deterministic rule order.
type FallbackRuleset string

const (
	RulesetPriorityV2 FallbackRuleset = "priority-v2"
	RulesetLegacyV1   FallbackRuleset = "legacy-v1"
)

// OutputMode selects the payable sheet layout.
type OutputMode string

const (
	OutputCostSplit OutputMode = "cost_split"
	OutputPlain     OutputMode = "plain"
)

// ParseOutputMode accepts the configured mode name.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case OutputCostSplit, OutputPlain:
		return OutputMode(s), nil
	default:
		return "", fmt.Errorf("unknown output mode %q", s)
	}
}

type Policy struct {
	ID      PolicyID
	Name    string
	Version int

	Formula PaymentFormula
	Ruleset FallbackRuleset

	// TerminationCutoffDay: a termination in the process month on or before
	// this day blocks payment. Zero disables the rule.
	TerminationCutoffDay int

	OutputMode OutputMode

	// EmployerShare is the fraction of the total borne by the employer in
	// OutputCostSplit mode; the employee is discounted the rest.
	EmployerShare decimal.Decimal
}

// WithOutputMode returns a copy of the policy using another sheet layout.
func (p Policy) WithOutputMode(mode OutputMode) Policy {
	p.OutputMode = mode
	return p
}

// =============================================================================
// POLICY REGISTRY
// =============================================================================

var (
	policyRegistry = make(map[PolicyID]Policy)
	registryMu     sync.RWMutex
)

// RegisterPolicy adds a policy to the global registry.
// Call this from domain package init() functions.
func RegisterPolicy(p Policy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	policyRegistry[p.ID] = p
}

// LookupPolicy finds a registered policy by ID.
func LookupPolicy(id PolicyID) (Policy, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := policyRegistry[id]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
	}
	return p, nil
}

// ListPolicies returns all registered policies ordered by ID.
func ListPolicies() []Policy {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Policy, 0, len(policyRegistry))
	for _, p := range policyRegistry {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

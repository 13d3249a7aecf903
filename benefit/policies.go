/*
policies.go - Registered benefit policies and the default union table

PURPOSE:
  Provides the two supported ways of computing VR as registered policies,
  plus the union table used when no catalog is configured.

AVAILABLE POLICIES:
  proportional-v2 (default):
    Proportional working days for hire / termination months, terminations
    on or before day 15 pay nothing, maternity pays in full, priority-v2
    fallback rules, 80/20 cost split sheet.

  full-days-v1:
    Base days for every eligible employee, legacy-v1 fallback rules with
    legal basis, plain sheet.

EXAMPLE:
  policy, err := generic.LookupPolicy(benefit.PolicyProportionalV2)
  table := benefit.DefaultUnionTable()

SEE ALSO:
  - calculator.go: Applies the policy's formula
  - adjudicator.go: Implements both fallback rulesets
  - factory/union.go: JSON union catalogs
*/
package benefit

import (
	"github.com/shopspring/decimal"
	"github.com/warp/vr-engine/generic"
)

const (
	PolicyProportionalV2 generic.PolicyID = "proportional-v2"
	PolicyFullDaysV1     generic.PolicyID = "full-days-v1"

	DefaultPolicy = PolicyProportionalV2

	// DefaultTerminationCutoffDay is the last day of the month on which a
	// termination still blocks payment.
	DefaultTerminationCutoffDay = 15
)

func init() {
	generic.RegisterPolicy(ProportionalPolicy())
	generic.RegisterPolicy(FullDaysPolicy())
}

// ProportionalPolicy is the authoritative VR policy.
func ProportionalPolicy() generic.Policy {
	return generic.Policy{
		ID:                   PolicyProportionalV2,
		Name:                 "Proportional VR",
		Version:              2,
		Formula:              generic.FormulaProportional,
		Ruleset:              generic.RulesetPriorityV2,
		TerminationCutoffDay: DefaultTerminationCutoffDay,
		OutputMode:           generic.OutputCostSplit,
		EmployerShare:        decimal.NewFromFloat(0.8),
	}
}

// FullDaysPolicy pays base days regardless of hire or termination dates.
func FullDaysPolicy() generic.Policy {
	return generic.Policy{
		ID:            PolicyFullDaysV1,
		Name:          "Full-days VR",
		Version:       1,
		Formula:       generic.FormulaFullDays,
		Ruleset:       generic.RulesetLegacyV1,
		OutputMode:    generic.OutputPlain,
		EmployerShare: decimal.NewFromFloat(0.8),
	}
}

// =============================================================================
// DEFAULT UNIONS
// =============================================================================

const DefaultFallbackUnion = "SINDPD SP"

// DefaultUnions returns the built-in unions in matching order.
func DefaultUnions() []UnionConfig {
	return []UnionConfig{
		{
			Code:      "SINDPD SP",
			Region:    "São Paulo",
			BaseDays:  22,
			DailyRate: generic.MustParseMoney("37.50"),
			Holidays:  generic.NewHolidaySet("2025-01-25"),
		},
		{
			Code:      "SINDPPD RS",
			Region:    "Rio Grande do Sul",
			BaseDays:  21,
			DailyRate: generic.MustParseMoney("35.00"),
			Holidays:  generic.NewHolidaySet(),
		},
		{
			Code:      "SINDPD RJ",
			Region:    "Rio de Janeiro",
			BaseDays:  21,
			DailyRate: generic.MustParseMoney("35.00"),
			Holidays:  generic.NewHolidaySet("2025-01-20"),
		},
		{
			Code:      "SITEPD PR",
			Region:    "Paraná",
			BaseDays:  22,
			DailyRate: generic.MustParseMoney("35.00"),
			Holidays:  generic.NewHolidaySet(),
		},
	}
}

// DefaultUnionTable builds the table from DefaultUnions.
func DefaultUnionTable() *UnionTable {
	t, err := NewUnionTable(DefaultUnions(), DefaultFallbackUnion)
	if err != nil {
		panic(err)
	}
	return t
}

/*
Package factory provides JSON to Go conversion for union catalogs and
policies.

PURPOSE:
  Union rates and holiday lists change with every collective agreement.
  Keeping them in a JSON file lets payroll update a catalog without a code
  change; the factory validates the file and builds the benefit types.

JSON SCHEMA (union catalog):
  {
    "fallback": "SINDPD SP",
    "unions": [
      {
        "code": "SINDPD SP",
        "region": "São Paulo",
        "base_days": 22,
        "daily_rate": "37.50",
        "holidays": ["2025-01-25"]
      }
    ]
  }

  Order of "unions" is the matching order. "daily_rate" accepts a number or
  a decimal string. "fallback" defaults to the first union.

JSON SCHEMA (policy override):
  {
    "base": "proportional-v2",
    "id": "proportional-cutoff-10",
    "termination_cutoff_day": 10,
    "output_mode": "plain",
    "employer_share": "0.75"
  }

USAGE:
  f := factory.NewUnionFactory()
  table, err := f.ParseUnionTable(data)

  policy, err := factory.ParsePolicy(data)
  generic.RegisterPolicy(policy)

SEE ALSO:
  - benefit/union.go: UnionTable
  - benefit/policies.go: Built-in unions and policies
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type UnionCatalogJSON struct {
	Fallback string      `json:"fallback,omitempty"`
	Unions   []UnionJSON `json:"unions"`
}

type UnionJSON struct {
	Code      string          `json:"code"`
	Region    string          `json:"region,omitempty"`
	BaseDays  int             `json:"base_days"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Holidays  []string        `json:"holidays,omitempty"`
}

// =============================================================================
// UNION FACTORY
// =============================================================================

// UnionFactory converts JSON catalogs to union tables.
type UnionFactory struct{}

func NewUnionFactory() *UnionFactory {
	return &UnionFactory{}
}

// LoadUnionTable reads a catalog file.
func (f *UnionFactory) LoadUnionTable(path string) (*benefit.UnionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read union catalog: %w", err)
	}
	return f.ParseUnionTable(data)
}

func (f *UnionFactory) ParseUnionTable(data []byte) (*benefit.UnionTable, error) {
	var cj UnionCatalogJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse union catalog JSON: %w", err)
	}
	return f.FromJSON(cj)
}

func (f *UnionFactory) FromJSON(cj UnionCatalogJSON) (*benefit.UnionTable, error) {
	cards := make([]benefit.UnionConfig, 0, len(cj.Unions))
	for i, uj := range cj.Unions {
		for _, h := range uj.Holidays {
			if _, err := generic.ParseISODate(h); err != nil {
				return nil, fmt.Errorf("union %d (%s): holiday %q: %w", i, uj.Code, h, err)
			}
		}
		cards = append(cards, benefit.UnionConfig{
			Code:      uj.Code,
			Region:    uj.Region,
			BaseDays:  uj.BaseDays,
			DailyRate: generic.NewMoneyFromDecimal(uj.DailyRate),
			Holidays:  generic.NewHolidaySet(uj.Holidays...),
		})
	}

	fallback := cj.Fallback
	if fallback == "" && len(cards) > 0 {
		fallback = cards[0].Code
	}
	return benefit.NewUnionTable(cards, fallback)
}

// ToJSON converts a table back to its catalog form.
func (f *UnionFactory) ToJSON(table *benefit.UnionTable) UnionCatalogJSON {
	cj := UnionCatalogJSON{Fallback: table.Fallback().Code}
	for _, c := range table.Cards() {
		cj.Unions = append(cj.Unions, UnionJSON{
			Code:      c.Code,
			Region:    c.Region,
			BaseDays:  c.BaseDays,
			DailyRate: c.DailyRate.Value,
			Holidays:  c.Holidays.Dates(),
		})
	}
	return cj
}

// =============================================================================
// POLICY OVERRIDES
// =============================================================================

// PolicyJSON derives a policy from a registered base policy.
type PolicyJSON struct {
	Base                 string           `json:"base"`
	ID                   string           `json:"id"`
	Name                 string           `json:"name,omitempty"`
	TerminationCutoffDay *int             `json:"termination_cutoff_day,omitempty"`
	OutputMode           string           `json:"output_mode,omitempty"`
	Ruleset              string           `json:"fallback_ruleset,omitempty"`
	EmployerShare        *decimal.Decimal `json:"employer_share,omitempty"`
}

// ParsePolicy builds a policy from JSON. The result is not registered.
func ParsePolicy(data []byte) (generic.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return generic.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}

	base := pj.Base
	if base == "" {
		base = string(benefit.DefaultPolicy)
	}
	policy, err := generic.LookupPolicy(generic.PolicyID(base))
	if err != nil {
		return generic.Policy{}, err
	}
	if pj.ID == "" {
		return generic.Policy{}, fmt.Errorf("policy JSON: id is required")
	}
	policy.ID = generic.PolicyID(pj.ID)
	if pj.Name != "" {
		policy.Name = pj.Name
	}

	if pj.TerminationCutoffDay != nil {
		if *pj.TerminationCutoffDay < 0 || *pj.TerminationCutoffDay > 31 {
			return generic.Policy{}, fmt.Errorf("policy JSON: termination_cutoff_day out of range: %d", *pj.TerminationCutoffDay)
		}
		policy.TerminationCutoffDay = *pj.TerminationCutoffDay
	}
	if pj.OutputMode != "" {
		mode, err := generic.ParseOutputMode(pj.OutputMode)
		if err != nil {
			return generic.Policy{}, fmt.Errorf("policy JSON: %w", err)
		}
		policy.OutputMode = mode
	}
	switch generic.FallbackRuleset(pj.Ruleset) {
	case "":
	case generic.RulesetPriorityV2, generic.RulesetLegacyV1:
		policy.Ruleset = generic.FallbackRuleset(pj.Ruleset)
	default:
		return generic.Policy{}, fmt.Errorf("policy JSON: unknown fallback ruleset %q", pj.Ruleset)
	}
	if pj.EmployerShare != nil {
		if pj.EmployerShare.IsNegative() || pj.EmployerShare.GreaterThan(decimal.NewFromInt(1)) {
			return generic.Policy{}, fmt.Errorf("policy JSON: employer_share must be within [0, 1]")
		}
		policy.EmployerShare = *pj.EmployerShare
	}
	return policy, nil
}

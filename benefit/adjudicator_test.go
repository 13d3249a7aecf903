package benefit_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newGuarded(primary benefit.Adjudicator, timeout time.Duration) *benefit.Guarded {
	g := benefit.NewGuarded(primary, generic.RulesetPriorityV2, timeout)
	g.Logger = quietLogger()
	return g
}

// =============================================================================
// PRIORITY-V2 FALLBACK RULES
// =============================================================================

func TestRuleAdjudicator_PriorityV2Branches(t *testing.T) {
	tests := []struct {
		name     string
		emp      benefit.EmployeeRecord
		rule     benefit.RuleID
		eligible bool
	}{
		{"director title", benefit.EmployeeRecord{Title: "Diretor Comercial", Category: benefit.CategoryActive, Status: "Working"}, benefit.RuleDirector, false},
		{"intern category", benefit.EmployeeRecord{Category: benefit.CategoryIntern, Status: "Working"}, benefit.RuleIntern, false},
		{"apprentice category", benefit.EmployeeRecord{Category: benefit.CategoryApprentice}, benefit.RuleApprentice, false},
		{"vacation status", benefit.EmployeeRecord{Category: benefit.CategoryActive, Status: "Vacation"}, benefit.RuleVacation, false},
		{"portuguese vacation with accent", benefit.EmployeeRecord{Status: "FÉRIAS"}, benefit.RuleVacation, false},
		{"abroad location", benefit.EmployeeRecord{Status: "Working", Location: benefit.LocationAbroad}, benefit.RuleAbroad, false},
		{"maternity status", benefit.EmployeeRecord{Status: "Licença Maternidade"}, benefit.RuleMaternity, true},
		{"medical aid leave", benefit.EmployeeRecord{Status: "Auxílio Doença"}, benefit.RuleLeave, false},
		{"generic leave", benefit.EmployeeRecord{Status: "Leave"}, benefit.RuleLeave, false},
		{"terminated status", benefit.EmployeeRecord{Category: benefit.CategoryActive, Status: "Terminated"}, benefit.RuleTerminated, true},
		{"terminated category", benefit.EmployeeRecord{Category: benefit.CategoryTerminated}, benefit.RuleTerminated, true},
		{"active default", benefit.EmployeeRecord{Title: "Analista", Category: benefit.CategoryActive, Status: "Working"}, benefit.RuleDefault, true},
	}

	rules := benefit.RuleAdjudicator{Ruleset: generic.RulesetPriorityV2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rules.Decide(context.Background(), tt.emp)
			assert.Equal(t, tt.rule, d.Rule)
			assert.Equal(t, tt.eligible, d.Eligible)
			assert.Equal(t, benefit.SourceFallback, d.Source)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestRuleAdjudicator_ApprenticeBeatsVacation(t *testing.T) {
	// GIVEN: An apprentice who is also on vacation
	// WHEN: The fallback rules decide
	// THEN: The apprentice rule fires because it is checked first

	emp := benefit.EmployeeRecord{ID: 7, Category: benefit.CategoryApprentice, Status: "Vacation"}
	d := benefit.RuleAdjudicator{}.Decide(context.Background(), emp)

	assert.Equal(t, benefit.RuleApprentice, d.Rule)
	assert.False(t, d.Eligible)
	assert.Equal(t, "apprentice not eligible", d.Reason)
}

func TestRuleAdjudicator_DirectorBeatsEverything(t *testing.T) {
	emp := benefit.EmployeeRecord{Title: "DIRECTOR", Category: benefit.CategoryIntern, Status: "Vacation", Location: benefit.LocationAbroad}
	d := benefit.RuleAdjudicator{}.Decide(context.Background(), emp)
	assert.Equal(t, benefit.RuleDirector, d.Rule)
}

// =============================================================================
// LEGACY-V1 FALLBACK RULES
// =============================================================================

func TestRuleAdjudicator_LegacyV1(t *testing.T) {
	rules := benefit.RuleAdjudicator{Ruleset: generic.RulesetLegacyV1}
	ctx := context.Background()

	t.Run("terminated is excluded with legal basis", func(t *testing.T) {
		d := rules.Decide(ctx, benefit.EmployeeRecord{Category: benefit.CategoryTerminated, Status: "Terminated"})
		assert.Equal(t, benefit.RuleTerminated, d.Rule)
		assert.False(t, d.Eligible)
		assert.Equal(t, "CLT - Sem vínculo", d.LegalBasis)
	})

	t.Run("apprentice checked before intern", func(t *testing.T) {
		d := rules.Decide(ctx, benefit.EmployeeRecord{Category: benefit.CategoryApprentice})
		assert.Equal(t, benefit.RuleApprentice, d.Rule)
		assert.Equal(t, "Lei 10.097/2000", d.LegalBasis)
	})

	t.Run("directors are not a legacy rule", func(t *testing.T) {
		d := rules.Decide(ctx, benefit.EmployeeRecord{Title: "Diretor", Category: benefit.CategoryActive, Status: "Working"})
		assert.Equal(t, benefit.RuleDefault, d.Rule)
		assert.True(t, d.Eligible)
		assert.Equal(t, "CLT + Acordo Sindical", d.LegalBasis)
	})

	t.Run("maternity keeps entitlement", func(t *testing.T) {
		d := rules.Decide(ctx, benefit.EmployeeRecord{Status: "Licença Maternidade"})
		assert.Equal(t, benefit.RuleMaternity, d.Rule)
		assert.True(t, d.Eligible)
	})
}

// =============================================================================
// GUARD
// =============================================================================

func TestGuarded_UsesRemoteDecision(t *testing.T) {
	primary := benefit.AdjudicatorFunc(func(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
		return benefit.Decision{Eligible: false, Reason: "remote says no"}, nil
	})

	d := newGuarded(primary, 0).Decide(context.Background(), benefit.EmployeeRecord{ID: 1, Status: "Working"})

	assert.False(t, d.Eligible)
	assert.Equal(t, "remote says no", d.Reason)
	assert.Equal(t, benefit.SourceRemote, d.Source)
	assert.Empty(t, d.Rule)
}

func TestGuarded_FallsBackOnError(t *testing.T) {
	calls := 0
	primary := benefit.AdjudicatorFunc(func(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
		calls++
		return benefit.Decision{}, errors.New("connection refused")
	})

	d := newGuarded(primary, 0).Decide(context.Background(), benefit.EmployeeRecord{ID: 1, Status: "Vacation"})

	assert.Equal(t, 1, calls, "no retry")
	assert.Equal(t, benefit.SourceFallback, d.Source)
	assert.Equal(t, benefit.RuleVacation, d.Rule)
}

func TestGuarded_FallsBackOnPanic(t *testing.T) {
	primary := benefit.AdjudicatorFunc(func(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
		panic("adapter bug")
	})

	var d benefit.Decision
	require.NotPanics(t, func() {
		d = newGuarded(primary, 0).Decide(context.Background(), benefit.EmployeeRecord{ID: 1, Status: "Working"})
	})
	assert.Equal(t, benefit.SourceFallback, d.Source)
	assert.Equal(t, benefit.RuleDefault, d.Rule)
}

func TestGuarded_FallsBackOnTimeout(t *testing.T) {
	// GIVEN: A remote adapter that never answers before its deadline
	// WHEN: The guard has a short timeout
	// THEN: The fallback decides and the call returns promptly

	primary := benefit.AdjudicatorFunc(func(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
		<-ctx.Done()
		return benefit.Decision{}, ctx.Err()
	})

	start := time.Now()
	d := newGuarded(primary, 20*time.Millisecond).Decide(context.Background(), benefit.EmployeeRecord{ID: 1, Category: benefit.CategoryIntern})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, benefit.RuleIntern, d.Rule)
}

func TestGuarded_FallsBackOnMalformedReply(t *testing.T) {
	primary := benefit.AdjudicatorFunc(func(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
		return benefit.ParseDecision("I cannot answer that")
	})

	d := newGuarded(primary, 0).Decide(context.Background(), benefit.EmployeeRecord{ID: 1, Status: "Leave"})
	assert.Equal(t, benefit.RuleLeave, d.Rule)
}

func TestGuarded_NilPrimaryUsesRules(t *testing.T) {
	d := newGuarded(nil, 0).Decide(context.Background(), benefit.EmployeeRecord{ID: 1})
	assert.Equal(t, benefit.SourceFallback, d.Source)
}

// =============================================================================
// REPLY PARSING
// =============================================================================

func TestParseDecision_ToleratesProseAndNestedBraces(t *testing.T) {
	reply := "Sure! Here is the result:\n" +
		`{"eligible": false, "reason": "on {vacation}", "meta": {"x": 1}}` +
		"\nAnything else? {not json}"

	d, err := benefit.ParseDecision(reply)
	require.NoError(t, err)
	assert.False(t, d.Eligible)
	assert.Equal(t, "on {vacation}", d.Reason)
	assert.Equal(t, benefit.SourceRemote, d.Source)
}

func TestParseDecision_PortugueseKeys(t *testing.T) {
	d, err := benefit.ParseDecision("```json\n{\"elegivel\": true, \"motivo\": \"ativo CLT\", \"base_legal\": \"CLT\"}\n```")
	require.NoError(t, err)
	assert.True(t, d.Eligible)
	assert.Equal(t, "ativo CLT", d.Reason)
	assert.Equal(t, "CLT", d.LegalBasis)
}

func TestParseDecision_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "eligible: yes"},
		{"unbalanced", `{"eligible": true, "reason": "x"`},
		{"missing eligible", `{"reason": "x"}`},
		{"missing reason", `{"eligible": true}`},
		{"wrong type", `{"eligible": "yes", "reason": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := benefit.ParseDecision(tt.reply)
			assert.ErrorIs(t, err, generic.ErrMalformedResponse)
		})
	}
}

func TestExtractJSONObject_EscapedQuotes(t *testing.T) {
	raw, ok := benefit.ExtractJSONObject(`x {"reason": "say \"}\" here", "eligible": true} y`)
	require.True(t, ok)
	assert.Equal(t, `{"reason": "say \"}\" here", "eligible": true}`, raw)
}

func TestBuildPrompt_EncodesEmployee(t *testing.T) {
	emp := benefit.EmployeeRecord{ID: 34941, Title: "Analista", Category: benefit.CategoryActive, Status: "Working", Location: benefit.LocationDomestic}
	prompt := benefit.BuildPrompt(emp, generic.MonthPeriod(2025, time.May))

	assert.Contains(t, prompt, "34941")
	assert.Contains(t, prompt, "Analista")
	assert.Contains(t, prompt, "05.2025")
	assert.Contains(t, prompt, `"eligible"`)
}

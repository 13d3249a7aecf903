package benefit_test

import (
	"context"
	"sync"
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

func newCalculator(t *testing.T, year int, month time.Month, policy generic.Policy, decider benefit.Decider) *benefit.Calculator {
	t.Helper()
	calc, err := benefit.NewCalculator(decider, benefit.DefaultUnionTable(), generic.MonthPeriod(year, month), policy)
	require.NoError(t, err)
	calc.Logger = quietLogger()
	return calc
}

func mayCalculator(t *testing.T) *benefit.Calculator {
	return newCalculator(t, 2025, time.May, benefit.ProportionalPolicy(), nil)
}

func day(year int, month time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(year, month, d)
}

func activeSP(id generic.EmployeeID) benefit.EmployeeRecord {
	return benefit.EmployeeRecord{
		ID:       id,
		Title:    "Analista",
		Status:   benefit.StatusWorking,
		Union:    "SINDPD SP - SÃO PAULO",
		Category: benefit.CategoryActive,
		Location: benefit.LocationDomestic,
	}
}

// alwaysEligible is a remote stand-in that approves everyone.
type alwaysEligible struct{}

func (alwaysEligible) Decide(_ context.Context, _ benefit.EmployeeRecord) benefit.Decision {
	return benefit.Decision{Eligible: true, Reason: "approved", Source: benefit.SourceRemote}
}

// =============================================================================
// PROPORTIONAL POLICY
// =============================================================================

func TestCompute_FullMonth(t *testing.T) {
	// GIVEN: An active employee with no hire or termination in May 2025
	// THEN: Base days are paid: 22 x 37.50

	res := mayCalculator(t).Compute(context.Background(), activeSP(1))

	assert.True(t, res.Eligible)
	assert.Equal(t, 22, res.Days)
	assert.Equal(t, "825.00", res.Total.String())
	assert.Equal(t, benefit.ReasonFullPayment, res.Reason)
	assert.Equal(t, "SINDPD SP", res.UnionCode)
	assert.False(t, res.UnionDefaulted)
}

func TestCompute_HiredMidMonth(t *testing.T) {
	emp := activeSP(1)
	emp.HireDate = day(2025, time.May, 5)

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.Equal(t, 20, res.Days)
	assert.Equal(t, "750.00", res.Total.String())
	assert.Equal(t, benefit.ReasonProportionalHire, res.Reason)
	assert.True(t, res.HireDate.Equal(emp.HireDate))
}

func TestCompute_TerminatedAfterCutoff(t *testing.T) {
	emp := activeSP(1)
	emp.Status = benefit.StatusTerminated
	emp.TerminationDate = day(2025, time.May, 20)

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.True(t, res.Eligible)
	assert.Equal(t, 14, res.Days)
	assert.Equal(t, "525.00", res.Total.String())
	assert.Equal(t, benefit.ReasonProportionalTermin, res.Reason)
}

func TestCompute_TerminatedOnOrBeforeCutoff(t *testing.T) {
	for _, d := range []int{1, 10, 15} {
		emp := activeSP(1)
		emp.Status = benefit.StatusTerminated
		emp.TerminationDate = day(2025, time.May, d)

		res := mayCalculator(t).Compute(context.Background(), emp)

		assert.False(t, res.Eligible, "day %d", d)
		assert.Equal(t, 0, res.Days)
		assert.True(t, res.Total.IsZero())
		assert.Equal(t, "terminated before day 15", res.Reason)
	}
}

func TestCompute_CutoffOverridesRemoteVerdict(t *testing.T) {
	// GIVEN: The remote adjudicator approves a termination on day 10
	// THEN: The cutoff still flips eligibility

	emp := activeSP(1)
	emp.TerminationDate = day(2025, time.May, 10)

	calc := newCalculator(t, 2025, time.May, benefit.ProportionalPolicy(), alwaysEligible{})
	res := calc.Compute(context.Background(), emp)

	assert.False(t, res.Eligible)
	assert.Equal(t, benefit.SourceRemote, res.Source)
}

func TestCompute_HiredAndTerminatedSameMonth(t *testing.T) {
	emp := activeSP(1)
	emp.HireDate = day(2025, time.May, 5)
	emp.TerminationDate = day(2025, time.May, 20)

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.Equal(t, 12, res.Days)
	assert.Equal(t, benefit.ReasonProportionalTermin, res.Reason)
}

func TestCompute_MaternityPaidInFull(t *testing.T) {
	emp := activeSP(1)
	emp.Status = "Licença Maternidade"
	emp.HireDate = day(2025, time.May, 20)

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.True(t, res.Eligible)
	assert.Equal(t, 22, res.Days)
	assert.Equal(t, benefit.ReasonMaternityFull, res.Reason)
}

func TestCompute_IneligiblePaysNothing(t *testing.T) {
	emp := activeSP(1)
	emp.Status = benefit.StatusVacation

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.False(t, res.Eligible)
	assert.Equal(t, 0, res.Days)
	assert.True(t, res.Total.IsZero())
	assert.Equal(t, "employee on vacation", res.Reason)
}

func TestCompute_DatesOutsideMonthMeanFullPayment(t *testing.T) {
	emp := activeSP(1)
	emp.HireDate = day(2020, time.March, 2)
	emp.TerminationDate = day(2025, time.June, 3)

	res := mayCalculator(t).Compute(context.Background(), emp)
	assert.Equal(t, 22, res.Days)
	assert.Equal(t, benefit.ReasonFullPayment, res.Reason)
}

func TestCompute_UnionHolidaysExcluded(t *testing.T) {
	// GIVEN: A Rio employee hired on January 2, 2025 (RJ holiday on the 20th)
	// THEN: 22 weekdays from the 2nd minus one holiday

	emp := activeSP(1)
	emp.Union = "SINDPD RJ"
	emp.HireDate = day(2025, time.January, 2)

	res := newCalculator(t, 2025, time.January, benefit.ProportionalPolicy(), nil).Compute(context.Background(), emp)

	assert.Equal(t, "SINDPD RJ", res.UnionCode)
	assert.Equal(t, 21, res.Days)
	assert.Equal(t, "735.00", res.Total.String())
}

// =============================================================================
// UNION RESOLUTION
// =============================================================================

func TestCompute_UnknownUnionUsesFallback(t *testing.T) {
	emp := activeSP(1)
	emp.Union = "SINDICATO DESCONHECIDO"

	res := mayCalculator(t).Compute(context.Background(), emp)

	assert.True(t, res.UnionDefaulted)
	assert.Equal(t, benefit.DefaultFallbackUnion, res.UnionCode)
	assert.Equal(t, "SINDICATO DESCONHECIDO", res.UnionLabel)
}

func TestUnionTable_FirstMatchWins(t *testing.T) {
	// GIVEN: Two codes that both occur in the recorded text
	// THEN: The card listed first wins, in either order

	broad := benefit.UnionConfig{Code: "SINDPD", BaseDays: 20, DailyRate: generic.MustParseMoney("30")}
	narrow := benefit.UnionConfig{Code: "SINDPD SP", BaseDays: 22, DailyRate: generic.MustParseMoney("37.50")}

	t1, err := benefit.NewUnionTable([]benefit.UnionConfig{broad, narrow}, "SINDPD")
	require.NoError(t, err)
	card, defaulted := t1.Resolve("sindpd sp")
	assert.False(t, defaulted)
	assert.Equal(t, "SINDPD", card.Code)

	t2, err := benefit.NewUnionTable([]benefit.UnionConfig{narrow, broad}, "SINDPD")
	require.NoError(t, err)
	card, _ = t2.Resolve("sindpd sp")
	assert.Equal(t, "SINDPD SP", card.Code)
}

func TestUnionTable_AccentInsensitive(t *testing.T) {
	table, err := benefit.NewUnionTable([]benefit.UnionConfig{{Code: "SINDICATO SÃO PAULO", BaseDays: 22}}, "SINDICATO SÃO PAULO")
	require.NoError(t, err)

	_, defaulted := table.Resolve("sindicato sao paulo - tecnologia")
	assert.False(t, defaulted)

	_, defaulted = table.Resolve("")
	assert.True(t, defaulted)
}

func TestNewUnionTable_Validation(t *testing.T) {
	_, err := benefit.NewUnionTable(benefit.DefaultUnions(), "NOPE")
	assert.ErrorIs(t, err, generic.ErrUnionNotFound)

	_, err = benefit.NewUnionTable(nil, "SINDPD SP")
	assert.Error(t, err)

	dup := append(benefit.DefaultUnions(), benefit.UnionConfig{Code: "sindpd sp"})
	_, err = benefit.NewUnionTable(dup, "SINDPD SP")
	assert.Error(t, err)
}

// =============================================================================
// FULL-DAYS POLICY
// =============================================================================

func TestCompute_FullDaysPolicy(t *testing.T) {
	calc := newCalculator(t, 2025, time.May, benefit.FullDaysPolicy(), nil)

	hired := activeSP(1)
	hired.HireDate = day(2025, time.May, 20)
	res := calc.Compute(context.Background(), hired)
	assert.Equal(t, 22, res.Days, "hire date is ignored")
	assert.Equal(t, "CLT + Acordo Sindical", res.LegalBasis)

	terminated := activeSP(2)
	terminated.Status = benefit.StatusTerminated
	terminated.TerminationDate = day(2025, time.May, 25)
	res = calc.Compute(context.Background(), terminated)
	assert.False(t, res.Eligible)
	assert.Equal(t, "CLT - Sem vínculo", res.LegalBasis)
}

// =============================================================================
// RUN
// =============================================================================

// slowDecider answers in reverse arrival order to shake out ordering bugs.
type slowDecider struct{}

func (slowDecider) Decide(ctx context.Context, emp benefit.EmployeeRecord) benefit.Decision {
	time.Sleep(time.Duration(10-int(emp.ID)%10) * time.Millisecond)
	return benefit.RuleAdjudicator{}.Decide(ctx, emp)
}

func registryOf(t *testing.T, n int) *benefit.Registry {
	rows := make([]benefit.SourceRow, n)
	for i := range rows {
		rows[i] = benefit.SourceRow{ID: generic.EmployeeID(i + 1).String(), Union: "SINDPD SP"}
	}
	reg, _ := buildRegistry(t, table("ATIVOS", rows...))
	return reg
}

func TestRun_PreservesRegistryOrder(t *testing.T) {
	reg := registryOf(t, 25)

	calc := newCalculator(t, 2025, time.May, benefit.ProportionalPolicy(), slowDecider{})
	calc.Workers = 8

	var (
		mu    sync.Mutex
		dones []int
	)
	calc.Progress = func(done, total int, _ generic.EmployeeID) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 25, total)
		dones = append(dones, done)
	}

	results, err := calc.Run(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, results, 25)
	for i, r := range results {
		assert.Equal(t, generic.EmployeeID(i+1), r.EmployeeID)
	}
	require.Len(t, dones, 25)
	for i, d := range dones {
		assert.Equal(t, i+1, d)
	}
}

func TestRun_SequentialMatchesParallel(t *testing.T) {
	reg := registryOf(t, 10)

	seq := mayCalculator(t)
	par := mayCalculator(t)
	par.Workers = 4

	a, err := seq.Run(context.Background(), reg)
	require.NoError(t, err)
	b, err := par.Run(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mayCalculator(t).Run(ctx, registryOf(t, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SeedAndLoadUnionTable(t *testing.T) {
	// GIVEN: An empty catalog seeded with the built-in unions
	// WHEN: The union table is loaded back
	// THEN: Order, rates, holidays and fallback survive the round trip

	ctx := context.Background()
	store := newTestStore(t)

	n, err := store.CountRateCards(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, benefit.DefaultUnionTable().Seed(ctx, store))

	table, err := benefit.NewUnionTableFromCatalog(ctx, store)
	require.NoError(t, err)

	cards := table.Cards()
	require.Len(t, cards, 4)
	for i, want := range benefit.DefaultUnions() {
		assert.Equal(t, want.Code, cards[i].Code)
		assert.Equal(t, want.BaseDays, cards[i].BaseDays)
		assert.True(t, want.DailyRate.Equal(cards[i].DailyRate), want.Code)
		assert.Equal(t, want.Holidays.Dates(), cards[i].Holidays.Dates())
	}
	assert.Equal(t, benefit.DefaultFallbackUnion, table.Fallback().Code)
}

func TestStore_ReplaceKeepsPosition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveRateCard(ctx, generic.RateCard{Code: "A", BaseDays: 22, DailyRate: generic.MustParseMoney("30"), Holidays: generic.NewHolidaySet("2025-01-01")}))
	require.NoError(t, store.SaveRateCard(ctx, generic.RateCard{Code: "B", BaseDays: 21, DailyRate: generic.MustParseMoney("31")}))
	require.NoError(t, store.SaveRateCard(ctx, generic.RateCard{Code: "A", BaseDays: 20, DailyRate: generic.MustParseMoney("32.50")}))

	cards, err := store.ListRateCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "A", cards[0].Code)
	assert.Equal(t, 20, cards[0].BaseDays)
	assert.Equal(t, "32.50", cards[0].DailyRate.String())
	assert.Empty(t, cards[0].Holidays.Dates(), "holidays replaced")

	fallback, err := store.FallbackCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", fallback, "first card when none is configured")
}

func TestStore_FallbackMustExist(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	assert.ErrorIs(t, store.SetFallbackCode(ctx, "NOPE"), generic.ErrUnionNotFound)

	fallback, err := store.FallbackCode(ctx)
	require.NoError(t, err)
	assert.Empty(t, fallback)
}

func TestStore_DeleteRateCard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, benefit.DefaultUnionTable().Seed(ctx, store))

	require.NoError(t, store.DeleteRateCard(ctx, "SINDPD RJ"))
	assert.ErrorIs(t, store.DeleteRateCard(ctx, "SINDPD RJ"), generic.ErrUnionNotFound)

	n, err := store.CountRateCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_RunHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	older := time.Date(2025, time.May, 31, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, sqlite.RunRecord{ID: "r1", Period: "05.2025", PolicyID: "proportional-v2",
		Employees: 3, Payable: 2, Total: generic.MustParseMoney("1575"), CreatedAt: older}))
	require.NoError(t, store.SaveRun(ctx, sqlite.RunRecord{ID: "r2", Period: "06.2025", PolicyID: "full-days-v1",
		Employees: 1, Payable: 1, Total: generic.MustParseMoney("825"), CreatedAt: older.Add(time.Hour)}))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, "1575.00", runs[1].Total.String())
	assert.True(t, runs[1].CreatedAt.Equal(older))
}

func TestStore_RunHistory_OrdersWithinOneSecond(t *testing.T) {
	// GIVEN: Two runs in the same second, the later one with a fraction
	ctx := context.Background()
	store := newTestStore(t)

	whole := time.Date(2025, time.May, 31, 10, 0, 5, 0, time.UTC)
	later := whole.Add(500 * time.Millisecond)
	require.NoError(t, store.SaveRun(ctx, sqlite.RunRecord{ID: "whole", Period: "05.2025", PolicyID: "proportional-v2",
		Total: generic.MustParseMoney("1"), CreatedAt: whole}))
	require.NoError(t, store.SaveRun(ctx, sqlite.RunRecord{ID: "later", Period: "05.2025", PolicyID: "proportional-v2",
		Total: generic.MustParseMoney("1"), CreatedAt: later}))

	// WHEN: Runs are listed
	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)

	// THEN: The later run comes first and both timestamps survive exactly
	require.Len(t, runs, 2)
	assert.Equal(t, "later", runs[0].ID)
	assert.True(t, runs[0].CreatedAt.Equal(later))
	assert.True(t, runs[1].CreatedAt.Equal(whole))
}

func TestStore_RunHistory_BadTimestampIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vr.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO runs (id, period, policy_id, employees, payable, total, created_at)
		VALUES ('r1', '05.2025', 'proportional-v2', 1, 1, '1.00', 'yesterday')`)
	require.NoError(t, err)

	_, err = store.ListRuns(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad created_at")
}

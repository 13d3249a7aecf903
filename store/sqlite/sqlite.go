/*
Package sqlite provides a SQLite-backed union catalog and run history.

PURPOSE:
  Keeps the union rate cards (base days, daily rate, holidays) in a small
  database so payroll can maintain them between runs, and records one
  summary line per completed run.

INTERFACES IMPLEMENTED:
  generic.RateCatalog:     Read access for the union table
  generic.WritableCatalog: Seeding and updates

KEY TABLES:
  unions:           One row per union, position = matching order
  union_holidays:   Holiday dates per union
  catalog_settings: Fallback union code
  runs:             Run summaries (ID, period, policy, counts, total)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety around multi-statement operations.

USAGE:
  store, err := sqlite.New("./data/vr.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  if n, _ := store.CountRateCards(ctx); n == 0 {
      err = benefit.DefaultUnionTable().Seed(ctx, store)
  }
  table, err := benefit.NewUnionTableFromCatalog(ctx, store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/vr-engine/generic"
)

const settingFallback = "fallback_union"

// createdAtLayout is fixed-width so text order in SQL matches time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the catalog interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS unions (
		code TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		base_days INTEGER NOT NULL,
		daily_rate TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_unions_position ON unions(position);

	CREATE TABLE IF NOT EXISTS union_holidays (
		union_code TEXT NOT NULL REFERENCES unions(code) ON DELETE CASCADE,
		holiday TEXT NOT NULL,
		PRIMARY KEY (union_code, holiday)
	);

	CREATE TABLE IF NOT EXISTS catalog_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		period TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		employees INTEGER NOT NULL,
		payable INTEGER NOT NULL,
		total TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RATE CATALOG
// =============================================================================

// SaveRateCard inserts or replaces a card. A new card is appended to the
// matching order; a replaced card keeps its position. Holidays are replaced.
func (s *Store) SaveRateCard(ctx context.Context, card generic.RateCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO unions (code, position, region, base_days, daily_rate, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM unions), ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			region = excluded.region,
			base_days = excluded.base_days,
			daily_rate = excluded.daily_rate,
			updated_at = excluded.updated_at
	`, card.Code, card.Region, card.BaseDays, card.DailyRate.Value.String(), now)
	if err != nil {
		return fmt.Errorf("save union %s: %w", card.Code, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM union_holidays WHERE union_code = ?`, card.Code); err != nil {
		return err
	}
	for _, h := range card.Holidays.Dates() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO union_holidays (union_code, holiday) VALUES (?, ?)`, card.Code, h); err != nil {
			return fmt.Errorf("save holiday %s for %s: %w", h, card.Code, err)
		}
	}
	return tx.Commit()
}

// SetFallbackCode fails with ErrUnionNotFound for an unknown code.
func (s *Store) SetFallbackCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unions WHERE code = ?`, code).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", generic.ErrUnionNotFound, code)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingFallback, code)
	return err
}

// ListRateCards returns all cards in matching order, holidays included.
func (s *Store) ListRateCards(ctx context.Context) ([]generic.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, region, base_days, daily_rate FROM unions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []generic.RateCard
	index := make(map[string]int)
	for rows.Next() {
		var (
			card generic.RateCard
			rate string
		)
		if err := rows.Scan(&card.Code, &card.Region, &card.BaseDays, &rate); err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("union %s: bad daily rate %q: %w", card.Code, rate, err)
		}
		card.DailyRate = generic.NewMoneyFromDecimal(value)
		card.Holidays = generic.NewHolidaySet()
		index[card.Code] = len(cards)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	hrows, err := s.db.QueryContext(ctx, `SELECT union_code, holiday FROM union_holidays`)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var code, holiday string
		if err := hrows.Scan(&code, &holiday); err != nil {
			return nil, err
		}
		if i, ok := index[code]; ok {
			cards[i].Holidays[holiday] = struct{}{}
		}
	}
	return cards, hrows.Err()
}

// FallbackCode returns the configured fallback, or the first card's code.
func (s *Store) FallbackCode(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM catalog_settings WHERE key = ?`, settingFallback).Scan(&code)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	err = s.db.QueryRowContext(ctx, `SELECT code FROM unions ORDER BY position LIMIT 1`).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

// DeleteRateCard removes a card and its holidays.
func (s *Store) DeleteRateCard(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM unions WHERE code = ?`, code)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrUnionNotFound, code)
	}
	return nil
}

// CountRateCards returns the number of unions in the catalog.
func (s *Store) CountRateCards(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unions`).Scan(&n)
	return n, err
}

var _ generic.WritableCatalog = (*Store)(nil)

// =============================================================================
// RUN HISTORY
// =============================================================================

// RunRecord summarizes one completed run.
type RunRecord struct {
	ID        string
	Period    string // MM.YYYY
	PolicyID  string
	Employees int
	Payable   int
	Total     generic.Money
	CreatedAt time.Time
}

func (s *Store) SaveRun(ctx context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, period, policy_id, employees, payable, total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Period, r.PolicyID, r.Employees, r.Payable, r.Total.String(), created.UTC().Format(createdAtLayout))
	return err
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period, policy_id, employees, payable, total, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			total   string
			created string
		)
		if err := rows.Scan(&r.ID, &r.Period, &r.PolicyID, &r.Employees, &r.Payable, &total, &created); err != nil {
			return nil, err
		}
		r.Total = generic.MustParseMoney(total)
		createdAt, err := time.Parse(createdAtLayout, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
		}
		r.CreatedAt = createdAt
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

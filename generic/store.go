/*
store.go - Rate card catalog interface

PURPOSE:
  Defines the interface between the engine and wherever union rate cards
  are kept. A rate card is static reference data: the base paid days, the
  daily rate and the holiday list for one bargaining unit. The catalog is
  read once per run; nothing computed by a run is ever written back.

KEY INTERFACES:
  RateCatalog:        Read access (list cards, fallback code)
  WritableCatalog:    Seeding (save cards, set fallback)

ORDERING:
  ListRateCards returns cards in catalog order. That order is significant:
  union text is matched against codes first-match-wins.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory catalog (default, tests)
  - store/sqlite/sqlite.go:  SQLite-backed catalog

SEE ALSO:
  - benefit/union.go: Builds the union table from a catalog
  - factory/union.go: Builds the union table from JSON
*/
package generic

import "context"

// =============================================================================
// RATE CARD - Static per-union parameters
// =============================================================================

type RateCard struct {
	Code      string
	Region    string
	BaseDays  int
	DailyRate Money
	Holidays  HolidaySet
}

// =============================================================================
// CATALOG - Interface for rate card lookup
// =============================================================================

// RateCatalog provides rate cards in significant order.
type RateCatalog interface {
	// ListRateCards returns every card, in catalog order.
	ListRateCards(ctx context.Context) ([]RateCard, error)

	// FallbackCode returns the code applied when no card matches.
	FallbackCode(ctx context.Context) (string, error)
}

// WritableCatalog extends RateCatalog with seeding operations.
type WritableCatalog interface {
	RateCatalog

	SaveRateCard(ctx context.Context, card RateCard) error
	SetFallbackCode(ctx context.Context, code string) error
}

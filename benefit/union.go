package benefit

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/vr-engine/generic"
)

// UnionConfig is the per-union parameter set: base days, daily rate, holidays.
type UnionConfig = generic.RateCard

// =============================================================================
// UNION TABLE - Ordered rate cards with a designated fallback
// =============================================================================

// UnionTable resolves free-text union labels to configured unions.
// Resolution is first-match-wins in table order, so the order in which
// cards are given is part of the configuration.
type UnionTable struct {
	cards    []UnionConfig
	fallback int
}

// NewUnionTable validates the cards and the fallback code.
func NewUnionTable(cards []UnionConfig, fallbackCode string) (*UnionTable, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("union table: no unions configured")
	}
	t := &UnionTable{cards: make([]UnionConfig, 0, len(cards)), fallback: -1}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		key := generic.Fold(c.Code)
		if key == "" {
			return nil, fmt.Errorf("union table: empty union code")
		}
		if seen[key] {
			return nil, fmt.Errorf("union table: duplicate union %q", c.Code)
		}
		if c.BaseDays < 0 || c.DailyRate.Value.IsNegative() {
			return nil, fmt.Errorf("union table: %s has negative base days or rate", c.Code)
		}
		seen[key] = true
		if key == generic.Fold(fallbackCode) {
			t.fallback = len(t.cards)
		}
		t.cards = append(t.cards, c)
	}
	if t.fallback < 0 {
		return nil, fmt.Errorf("%w: fallback %q", generic.ErrUnionNotFound, fallbackCode)
	}
	return t, nil
}

// NewUnionTableFromCatalog loads the table from a rate catalog.
func NewUnionTableFromCatalog(ctx context.Context, catalog generic.RateCatalog) (*UnionTable, error) {
	cards, err := catalog.ListRateCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rate cards: %w", err)
	}
	fallback, err := catalog.FallbackCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("fallback code: %w", err)
	}
	return NewUnionTable(cards, fallback)
}

// Resolve returns the first union whose code occurs in text, compared
// case- and accent-insensitively. When nothing matches, the fallback union
// is returned with defaulted=true.
func (t *UnionTable) Resolve(text string) (card UnionConfig, defaulted bool) {
	folded := generic.Fold(text)
	if folded != "" {
		for _, c := range t.cards {
			if strings.Contains(folded, generic.Fold(c.Code)) {
				return c, false
			}
		}
	}
	return t.cards[t.fallback], true
}

func (t *UnionTable) Fallback() UnionConfig { return t.cards[t.fallback] }

// Cards returns the unions in table order.
func (t *UnionTable) Cards() []UnionConfig {
	out := make([]UnionConfig, len(t.cards))
	copy(out, t.cards)
	return out
}

// Seed writes the table into a writable catalog, keeping order.
func (t *UnionTable) Seed(ctx context.Context, catalog generic.WritableCatalog) error {
	for _, c := range t.cards {
		if err := catalog.SaveRateCard(ctx, c); err != nil {
			return fmt.Errorf("save %s: %w", c.Code, err)
		}
	}
	return catalog.SetFallbackCode(ctx, t.Fallback().Code)
}

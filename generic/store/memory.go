// Package store provides RateCatalog implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/vr-engine/generic"
)

// =============================================================================
// MEMORY CATALOG - In-memory implementation (default/testing)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	cards    []generic.RateCard
	index    map[string]int
	fallback string
}

func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

// SaveRateCard inserts a card, or replaces one with the same code in place
// so catalog order is kept.
func (m *Memory) SaveRateCard(_ context.Context, card generic.RateCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[card.Code]; ok {
		m.cards[i] = card
		return nil
	}
	m.index[card.Code] = len(m.cards)
	m.cards = append(m.cards, card)
	return nil
}

// SetFallbackCode fails if the code has no card.
func (m *Memory) SetFallbackCode(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[code]; !ok {
		return generic.ErrUnionNotFound
	}
	m.fallback = code
	return nil
}

func (m *Memory) ListRateCards(_ context.Context) ([]generic.RateCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.RateCard, len(m.cards))
	copy(result, m.cards)
	return result, nil
}

func (m *Memory) FallbackCode(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.fallback == "" && len(m.cards) > 0 {
		return m.cards[0].Code, nil
	}
	return m.fallback, nil
}

var _ generic.WritableCatalog = (*Memory)(nil)

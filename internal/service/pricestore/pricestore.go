package pricestore

import (
	"sync"

	"github.com/krobus00/futures-terminal/internal/entity"
)

// Store holds the latest best bid/ask per symbol. It is written by the
// websocket feed goroutine and by synchronous REST quote lookups, and read by
// the UI refresh loop. Quotes are stored as whole values under the lock so a
// reader sees either the prior pair or the new pair, never a mix.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]entity.Quote
}

func New() *Store {
	return &Store{quotes: make(map[string]entity.Quote)}
}

// Upsert records the latest quote for a symbol, last write wins.
func (s *Store) Upsert(symbol string, bid, ask float64) {
	s.mu.Lock()
	s.quotes[symbol] = entity.Quote{Bid: bid, Ask: ask}
	s.mu.Unlock()
}

// Get returns the latest quote and whether the symbol has been observed yet.
func (s *Store) Get(symbol string) (entity.Quote, bool) {
	s.mu.RLock()
	quote, ok := s.quotes[symbol]
	s.mu.RUnlock()

	return quote, ok
}

// Snapshot returns a copy of all known quotes.
func (s *Store) Snapshot() map[string]entity.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]entity.Quote, len(s.quotes))
	for symbol, quote := range s.quotes {
		snapshot[symbol] = quote
	}

	return snapshot
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

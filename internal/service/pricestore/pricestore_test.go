package pricestore

import (
	"sync"
	"testing"

	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store_UpsertAndGet(t *testing.T) {
	store := New()

	_, ok := store.Get("BTCUSDT")
	assert.False(t, ok, "unknown symbol must report missing, not panic")

	store.Upsert("BTCUSDT", 50000.10, 50000.20)

	quote, ok := store.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, entity.Quote{Bid: 50000.10, Ask: 50000.20}, quote)
}

func Test_Store_UpsertIsIdempotent(t *testing.T) {
	store := New()

	store.Upsert("ETHUSDT", 2000.5, 2000.6)
	store.Upsert("ETHUSDT", 2000.5, 2000.6)

	quote, ok := store.Get("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, entity.Quote{Bid: 2000.5, Ask: 2000.6}, quote)
	assert.Equal(t, 1, store.Len())
}

func Test_Store_LastWriteWins(t *testing.T) {
	store := New()

	store.Upsert("BTCUSDT", 1, 2)
	store.Upsert("BTCUSDT", 3, 4)

	quote, ok := store.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, entity.Quote{Bid: 3, Ask: 4}, quote)
}

// Readers must always observe a matched bid/ask pair even while a writer is
// replacing it.
func Test_Store_ConcurrentReadersSeeWholePairs(t *testing.T) {
	store := New()
	store.Upsert("BTCUSDT", 1, 2)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				store.Upsert("BTCUSDT", 1, 2)
			} else {
				store.Upsert("BTCUSDT", 100, 200)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			quote, ok := store.Get("BTCUSDT")
			if !ok {
				continue
			}
			assert.Equal(t, quote.Bid*2, quote.Ask, "torn quote observed")
		}
	}()

	wg.Wait()
}

func Test_Store_SnapshotIsACopy(t *testing.T) {
	store := New()
	store.Upsert("BTCUSDT", 1, 2)

	snapshot := store.Snapshot()
	snapshot["BTCUSDT"] = entity.Quote{Bid: 99, Ask: 99}

	quote, ok := store.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, entity.Quote{Bid: 1, Ask: 2}, quote)
}

package repository

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/krobus00/futures-terminal/internal/entity"
	"github.com/redis/go-redis/v9"
)

// RedisPriceSnapshotStore mirrors the latest bid/ask per symbol into Redis so
// detached tooling can read live prices without a connection to the exchange.
// Entries are volatile live state, not a historical record.
type RedisPriceSnapshotStore struct {
	client *redis.Client
}

func NewRedisPriceSnapshotStore(cacheDSN string) (*RedisPriceSnapshotStore, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return &RedisPriceSnapshotStore{client: redis.NewClient(options)}, nil
}

func (s *RedisPriceSnapshotStore) Save(ctx context.Context, exchange, symbol string, quote entity.Quote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, snapshotKey(exchange, symbol), payload, 0).Err()
}

func (s *RedisPriceSnapshotStore) Load(ctx context.Context, exchange, symbol string) (entity.Quote, bool, error) {
	rawQuote, err := s.client.Get(ctx, snapshotKey(exchange, symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			return entity.Quote{}, false, nil
		}
		return entity.Quote{}, false, err
	}

	var quote entity.Quote
	if err := json.Unmarshal([]byte(rawQuote), &quote); err != nil {
		return entity.Quote{}, false, err
	}

	return quote, true, nil
}

func (s *RedisPriceSnapshotStore) Close() error {
	return s.client.Close()
}

func snapshotKey(exchange, symbol string) string {
	return fmt.Sprintf("price_snapshot:%s:%s", exchange, symbol)
}

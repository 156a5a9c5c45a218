// Package redis keeps reports in a Redis list and provides the per-client
// submission limiter.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient builds a client for addr; it does not dial until first use.
func NewClient(addr, password string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// Store is a report sequence held in a single Redis list, oldest first.
type Store struct {
	client goredis.UniversalClient
	key    string
}

// NewStore returns a store over the list at key.
func NewStore(client goredis.UniversalClient, key string) *Store {
	return &Store{client: client, key: key}
}

// LoadAll returns every report in the list, in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Report, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", s.key, err)
	}
	reports := make([]domain.Report, 0, len(items))
	for i, item := range items {
		var r domain.Report
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode report at index %d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Append pushes r onto the tail of the list.
func (s *Store) Append(ctx context.Context, r domain.Report) (domain.Report, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("encode report: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return domain.Report{}, fmt.Errorf("rpush %s: %w", s.key, err)
	}
	return r, nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

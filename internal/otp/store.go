package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps records in process until they are consumed or swept.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, email string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[strings.Clone(email)] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	return rec, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[email]; !ok {
		return false, nil
	}
	delete(s.records, email)
	return true, nil
}

// Sweep removes records issued at or before now minus ttl.
func (s *MemoryStore) Sweep(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for email, rec := range s.records {
		if now.Sub(rec.IssuedAt) >= ttl {
			delete(s.records, email)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Run sweeps expired records every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now, ttl)
		}
	}
}

// RedisStore shares records between instances. Keys outlive the code TTL by a
// grace period so Verify can still report an expired code.
type RedisStore struct {
	client *redis.Client
	prefix string
	expiry time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix + "otp:",
		expiry: ttl + time.Minute,
	}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + email
}

func (s *RedisStore) Save(ctx context.Context, email string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	return s.client.Set(ctx, s.key(email), data, s.expiry).Err()
}

func (s *RedisStore) Get(ctx context.Context, email string) (Record, bool, error) {
	data, err := s.client.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal otp record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Package reservation provides a short-lived per-name lock that closes the
// window between the duplicate guard's channel listing and channel creation.
// Without it, two concurrent submissions for the same derived name can both
// pass the guard and both create a channel.
package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ticket:reservation:"

// Reservations acquires and releases named reservations. Acquire returns
// false when the name is already held.
type Reservations interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

type redisReservations struct {
	client *redis.Client
}

// NewRedis builds a reservation store on a shared redis client, so
// reservations hold across replicas.
func NewRedis(client *redis.Client) Reservations {
	return &redisReservations{client: client}
}

func (r *redisReservations) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+name, "1", ttl).Result()
}

func (r *redisReservations) Release(ctx context.Context, name string) error {
	return r.client.Del(ctx, keyPrefix+name).Err()
}

type memoryReservations struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemory builds a process-local reservation store, used when redis is not
// configured. Sufficient for a single instance.
func NewMemory() Reservations {
	return &memoryReservations{expires: make(map[string]time.Time)}
}

func (m *memoryReservations) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if until, held := m.expires[name]; held && now.Before(until) {
		return false, nil
	}
	m.expires[name] = now.Add(ttl)
	return true, nil
}

func (m *memoryReservations) Release(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, name)
	return nil
}

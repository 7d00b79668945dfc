// Package notify fans state-change events out to watching sessions. Delivery
// is best-effort and at-most-once: read-models rebuild from the database, so
// a dropped event costs latency, never correctness.
package notify

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event names follow "{kind}.{approved|rejected}" for moderation decisions
// and "ticket.{updated|assigned|unassigned}" for ticket changes.
type Event struct {
	Name     string `json:"event"`
	TargetID string `json:"id"`
	Scope    string `json:"scope"`
}

type Notifier interface {
	// Publish is fire-and-forget; implementations log failures and return
	// nothing the caller could act on.
	Publish(ctx context.Context, ev Event)
}

const stream = "modboard.events"

// ChannelFor returns the pub/sub channel carrying events for one scope.
func ChannelFor(scope string) string { return stream + "." + scope }

// RedisNotifier appends every event to a stream (durable consumers, e.g.
// email digests) and publishes it on a per-scope channel for live sessions.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) {
	values := map[string]any{"event": ev.Name, "id": ev.TargetID, "scope": ev.Scope}
	if err := n.rdb.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		log.Printf("notify: stream append failed for %s: %v", ev.Name, err)
	}
	if err := n.rdb.Publish(ctx, ChannelFor(ev.Scope), ev.Name+"|"+ev.TargetID).Err(); err != nil {
		log.Printf("notify: publish failed for %s: %v", ev.Name, err)
	}
}

// MemoryNotifier collects events in-process. Used by tests and as a fallback
// when Redis is not configured.
type MemoryNotifier struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *MemoryNotifier { return &MemoryNotifier{} }

func (n *MemoryNotifier) Publish(_ context.Context, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Events returns a copy of everything published so far.
func (n *MemoryNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}

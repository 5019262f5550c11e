package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Adapter wraps a Backend with JSON (de)serialization and error containment.
// A nil backend models a host with no persistent storage: reads yield the
// caller's default and writes are dropped.
type Adapter struct {
	backend Backend
	clock   clockwork.Clock
	log     *slog.Logger

	mu      sync.RWMutex
	onWrite func()
}

// NewAdapter returns an adapter over backend.
func NewAdapter(backend Backend, clock clockwork.Clock, log *slog.Logger) *Adapter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		backend: backend,
		clock:   clock,
		log:     log.With("component", "store"),
	}
}

// Unavailable returns an adapter with no backend.
func Unavailable(log *slog.Logger) *Adapter {
	return NewAdapter(nil, nil, log)
}

// Available reports whether a backend is attached.
func (a *Adapter) Available() bool {
	return a.backend != nil
}

// Clock returns the clock used for activity stamps.
func (a *Adapter) Clock() clockwork.Clock {
	return a.clock
}

// OnWrite registers fn to run after every committed write.
func (a *Adapter) OnWrite(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onWrite = fn
}

// Read decodes the value stored under key. Any failure (missing key, corrupt
// JSON, backend error, no backend) is logged and def is returned instead.
func Read[T any](ctx context.Context, a *Adapter, key string, def T) T {
	if a.backend == nil {
		return def
	}
	raw, ok, err := a.backend.Get(ctx, key)
	if err != nil {
		a.log.Error("read failed", "key", key, "error", err)
		return def
	}
	if !ok || raw == "" {
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		a.log.Error("decode failed", "key", key, "error", err)
		return def
	}
	return v
}

// Write stores value under key and stamps the last-activity marker in the
// same transaction. Failures are logged, never returned.
func (a *Adapter) Write(ctx context.Context, key string, value any) {
	if err := a.WriteMany(ctx, map[string]any{key: value}); err != nil && err != ErrUnavailable {
		a.log.Error("write failed", "key", key, "error", err)
	}
}

// WriteMany stores all values atomically. Either every key is updated or
// none is. The write hook runs only after the commit succeeded.
func (a *Adapter) WriteMany(ctx context.Context, values map[string]any) error {
	if a.backend == nil {
		return ErrUnavailable
	}

	encoded := make(map[string]string, len(values)+1)
	for key, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		encoded[key] = string(b)
	}
	stamp, _ := json.Marshal(a.clock.Now().UTC().Format(time.RFC3339Nano))
	encoded[KeyLastActivity] = string(stamp)

	if err := a.backend.SetMany(ctx, encoded); err != nil {
		return err
	}

	a.mu.RLock()
	hook := a.onWrite
	a.mu.RUnlock()
	if hook != nil {
		hook()
	}
	return nil
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) {
	if a.backend == nil {
		return
	}
	if err := a.backend.Delete(ctx, key); err != nil {
		a.log.Error("remove failed", "key", key, "error", err)
	}
}

// LastActivity returns the time of the most recent write.
func (a *Adapter) LastActivity(ctx context.Context) (time.Time, bool) {
	raw := Read(ctx, a, KeyLastActivity, "")
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

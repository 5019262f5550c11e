package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestAdapter(t *testing.T) (*Adapter, *SQLiteStore, *clockwork.FakeClock) {
	t.Helper()
	s := newTestStore(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	return NewAdapter(s, clock, nil), s, clock
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (failingBackend) SetMany(context.Context, map[string]string) error {
	return errors.New("disk on fire")
}
func (failingBackend) Delete(context.Context, string) error { return errors.New("disk on fire") }

func TestReadWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAdapter(t)

	a.Write(ctx, "rec", record{Name: "milk", Count: 2})

	got := Read(ctx, a, "rec", record{})
	assert.Equal(t, record{Name: "milk", Count: 2}, got)
}

func TestReadMissingReturnsDefault(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	got := Read(context.Background(), a, "missing", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
}

func TestReadCorruptReturnsDefault(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAdapter(t)

	require.NoError(t, s.SetMany(ctx, map[string]string{"rec": `{not json`}))

	got := Read(ctx, a, "rec", record{Name: "default"})
	assert.Equal(t, "default", got.Name)
}

func TestReadBackendErrorReturnsDefault(t *testing.T) {
	a := NewAdapter(failingBackend{}, nil, nil)

	got := Read(context.Background(), a, "rec", 42)
	assert.Equal(t, 42, got)
}

func TestWriteBackendErrorIsContained(t *testing.T) {
	a := NewAdapter(failingBackend{}, nil, nil)
	called := false
	a.OnWrite(func() { called = true })

	assert.NotPanics(t, func() { a.Write(context.Background(), "k", 1) })
	assert.False(t, called, "hook must not run when the write failed")
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	a := Unavailable(nil)

	assert.False(t, a.Available())
	a.Write(ctx, "k", 1)
	assert.Equal(t, 7, Read(ctx, a, "k", 7))
	assert.ErrorIs(t, a.WriteMany(ctx, map[string]any{"k": 1}), ErrUnavailable)
	a.Remove(ctx, "k")
}

func TestWriteStampsLastActivity(t *testing.T) {
	ctx := context.Background()
	a, _, clock := newTestAdapter(t)

	_, ok := a.LastActivity(ctx)
	assert.False(t, ok)

	clock.Advance(time.Hour)
	a.Write(ctx, "k", 1)

	at, ok := a.LastActivity(ctx)
	require.True(t, ok)
	assert.True(t, at.Equal(clock.Now()))
}

func TestWriteHookRunsAfterCommit(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAdapter(t)

	var seen string
	a.OnWrite(func() {
		seen, _, _ = s.Get(ctx, "k")
	})

	a.Write(ctx, "k", "v")
	assert.Equal(t, `"v"`, seen, "hook should observe the committed value")
}

func TestWriteManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAdapter(t)

	err := a.WriteMany(ctx, map[string]any{
		"good": 1,
		"bad":  make(chan int),
	})
	require.Error(t, err)
	assert.Equal(t, 0, Read(ctx, a, "good", 0), "nothing is written when one value fails to encode")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestAdapter(t)

	a.Write(ctx, "k", 5)
	a.Remove(ctx, "k")
	assert.Equal(t, 0, Read(ctx, a, "k", 0))
}

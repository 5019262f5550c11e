package premium

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

func newTestService(t *testing.T, enforce bool) (*Service, *clockwork.FakeClock) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	kv := store.NewAdapter(s, clock, slog.Default())
	return NewService(kv, clock, enforce, slog.Default()), clock
}

func TestDefaultIsFree(t *testing.T) {
	svc, _ := newTestService(t, true)

	assert.False(t, svc.IsActive(context.Background()))
	assert.False(t, svc.Status(context.Background()).IsPremium)
}

func TestActivateMonthlyExpires(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, true)

	st, err := svc.Activate(ctx, model.SubscriptionMonthly)
	require.NoError(t, err)
	require.NotNil(t, st.ExpiryDate)
	assert.True(t, svc.IsActive(ctx))

	clock.Advance(32 * 24 * time.Hour)
	assert.False(t, svc.IsActive(ctx), "expired subscription should fall back to free tier")
	assert.True(t, svc.Status(ctx).IsPremium, "stored flag is left untouched")
}

func TestExpiryNotEnforced(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, false)

	_, err := svc.Activate(ctx, model.SubscriptionYearly)
	require.NoError(t, err)

	clock.Advance(400 * 24 * time.Hour)
	assert.True(t, svc.IsActive(ctx))
}

func TestLifetimeNeverExpires(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t, true)

	st, err := svc.Activate(ctx, model.SubscriptionLifetime)
	require.NoError(t, err)
	assert.Nil(t, st.ExpiryDate)

	clock.Advance(10 * 365 * 24 * time.Hour)
	assert.True(t, svc.IsActive(ctx))
}

func TestSetRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)

	err := svc.Set(ctx, model.PremiumStatus{IsPremium: true, SubscriptionType: "weekly"})
	assert.Error(t, err)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	err = svc.Set(ctx, model.PremiumStatus{IsPremium: true, SubscriptionDate: &start, ExpiryDate: &end})
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, true)

	_, err := svc.Activate(ctx, model.SubscriptionLifetime)
	require.NoError(t, err)
	svc.Cancel(ctx)
	assert.False(t, svc.IsActive(ctx))
}

package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/allergy-diary/internal/config"
	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

func testConfig(path string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Path: path},
		Log:     config.LogConfig{Level: "info", Format: "text"},
		Backup:  config.BackupConfig{Debounce: 5 * time.Second},
		Quota:   config.QuotaConfig{Timezone: "UTC"},
		Premium: config.PremiumConfig{EnforceExpiry: true},
		LLM:     config.LLMConfig{Timeout: time.Second, MaxConcurrent: 1},
	}
}

func newTestApp(t *testing.T, path string) (*App, *clockwork.FakeClock) {
	t.Helper()
	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	kv := store.NewAdapter(s, clock, slog.Default())
	return build(testConfig(path), s, kv, clock, slog.Default()), clock
}

func TestAutoBackupAfterQuietPeriod(t *testing.T) {
	ctx := context.Background()
	a, clock := newTestApp(t, filepath.Join(t.TempDir(), "diary.db"))
	t.Cleanup(func() { a.Close() })

	_, err := a.Diary.Profiles.Add(ctx, model.Profile{Name: "Anna"})
	require.NoError(t, err)
	assert.True(t, a.Scheduler.Pending())
	assert.Empty(t, a.Backup.List(ctx))

	clock.Advance(4 * time.Second)
	assert.Never(t, func() bool { return len(a.Backup.List(ctx)) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(a.Backup.List(ctx)) == 1 }, time.Second, 5*time.Millisecond)

	snap := a.Backup.List(ctx)[0]
	require.Len(t, snap.Data.UserProfiles, 1)
	assert.Equal(t, "Anna", snap.Data.UserProfiles[0].Name)
}

func TestCloseFlushesPendingBackup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "diary.db")
	a, _ := newTestApp(t, path)

	_, err := a.Diary.Profiles.Add(ctx, model.Profile{Name: "Ben"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	kv := store.NewAdapter(s, nil, slog.Default())
	backups := store.Read(ctx, kv, store.KeyAutoBackups, []model.AutoBackup{})
	assert.Len(t, backups, 1)
}

func TestNewWithoutStorage(t *testing.T) {
	ctx := context.Background()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	a := New(testConfig(filepath.Join(blocker, "diary.db")), slog.Default())
	assert.Nil(t, a.Store)
	assert.False(t, a.KV.Available())

	p, err := a.Diary.Profiles.Add(ctx, model.Profile{Name: "Anna"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Empty(t, a.Diary.Profiles.List(ctx), "nothing is persisted")
	assert.False(t, a.Analysis.Enabled())
	assert.NoError(t, a.Close())
}

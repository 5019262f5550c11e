// Package backup keeps rolling automatic snapshots of the diary and moves
// whole diaries in and out as JSON documents.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// DefaultSettings are used until the user saves their own.
func DefaultSettings() model.BackupSettings {
	return model.BackupSettings{
		Enabled:    true,
		Frequency:  model.FrequencyDaily,
		MaxBackups: 7,
	}
}

// MaxRetention bounds BackupSettings.MaxBackups.
const MaxRetention = 100

// Engine creates, lists and restores snapshots.
type Engine struct {
	kv    *store.Adapter
	clock clockwork.Clock
	log   *slog.Logger

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewEngine creates a backup Engine.
func NewEngine(kv *store.Adapter, log *slog.Logger) *Engine {
	clock := kv.Clock()
	return &Engine{
		kv:      kv,
		clock:   clock,
		log:     log.With("component", "backup"),
		entropy: rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

func (e *Engine) newID() string {
	return ulid.MustNew(ulid.Timestamp(e.clock.Now()), e.entropy).String()
}

// Settings returns the stored settings or the defaults.
func (e *Engine) Settings(ctx context.Context) model.BackupSettings {
	return store.Read(ctx, e.kv, store.KeyBackupSettings, DefaultSettings())
}

// SaveSettings validates and stores settings. The last backup date is kept
// from the stored record.
func (e *Engine) SaveSettings(ctx context.Context, s model.BackupSettings) error {
	verr := &model.ValidationError{}
	if !model.ValidFrequencies[s.Frequency] {
		verr.Add("frequency", fmt.Sprintf("invalid value %q (valid: daily, weekly, monthly)", s.Frequency))
	}
	if s.MaxBackups < 1 || s.MaxBackups > MaxRetention {
		verr.Add("maxBackups", fmt.Sprintf("must be between 1 and %d", MaxRetention))
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.LastBackupDate = e.Settings(ctx).LastBackupDate
	backups := e.list(ctx)
	values := map[string]any{store.KeyBackupSettings: s}
	if len(backups) > s.MaxBackups {
		values[store.KeyAutoBackups] = backups[:s.MaxBackups]
	}
	return e.kv.WriteMany(ctx, values)
}

func (e *Engine) list(ctx context.Context) []model.AutoBackup {
	backups := store.Read(ctx, e.kv, store.KeyAutoBackups, []model.AutoBackup{})
	if backups == nil {
		return []model.AutoBackup{}
	}
	return backups
}

// List returns the retained snapshots, newest first.
func (e *Engine) List(ctx context.Context) []model.AutoBackup {
	return e.list(ctx)
}

// Get returns the snapshot with id.
func (e *Engine) Get(ctx context.Context, id string) (*model.AutoBackup, error) {
	for _, b := range e.list(ctx) {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("backup %s: %w", id, model.ErrNotFound)
}

func (e *Engine) snapshot(ctx context.Context) model.Snapshot {
	snap := model.Snapshot{
		FoodEntries:    store.Read(ctx, e.kv, store.KeyFoodEntries, []model.FoodEntry{}),
		SymptomEntries: store.Read(ctx, e.kv, store.KeySymptomEntries, []model.SymptomEntry{}),
		UserProfiles:   store.Read(ctx, e.kv, store.KeyUserProfiles, []model.Profile{}),
		AppSettings:    store.Read(ctx, e.kv, store.KeyAppSettings, model.AppSettings{}),
	}
	if snap.FoodEntries == nil {
		snap.FoodEntries = []model.FoodEntry{}
	}
	if snap.SymptomEntries == nil {
		snap.SymptomEntries = []model.SymptomEntry{}
	}
	if snap.UserProfiles == nil {
		snap.UserProfiles = []model.Profile{}
	}
	return snap
}

// record prepends a snapshot of the current data, trims the list to the
// retention limit and stamps the last backup date, all in one write.
func (e *Engine) record(ctx context.Context, settings model.BackupSettings) (*model.AutoBackup, error) {
	now := e.clock.Now().UTC()
	b := model.AutoBackup{
		ID:        e.newID(),
		Timestamp: now,
		Data:      e.snapshot(ctx),
	}

	backups := append([]model.AutoBackup{b}, e.list(ctx)...)
	limit := settings.MaxBackups
	if limit < 1 {
		limit = DefaultSettings().MaxBackups
	}
	if len(backups) > limit {
		backups = backups[:limit]
	}
	settings.LastBackupDate = &now

	if err := e.kv.WriteMany(ctx, map[string]any{
		store.KeyAutoBackups:    backups,
		store.KeyBackupSettings: settings,
	}); err != nil {
		return nil, err
	}
	e.log.Info("snapshot created", "id", b.ID, "retained", len(backups))
	return &b, nil
}

// CreateAuto takes a snapshot when automatic backups are enabled and the
// configured interval has passed since the newest one. It reports whether a
// snapshot was taken.
func (e *Engine) CreateAuto(ctx context.Context) (*model.AutoBackup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.Settings(ctx)
	if !settings.Enabled {
		return nil, false
	}
	if backups := e.list(ctx); len(backups) > 0 {
		if e.clock.Since(backups[0].Timestamp) < settings.Frequency.Interval() {
			return nil, false
		}
	}

	b, err := e.record(ctx, settings)
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			e.log.Error("automatic snapshot failed", "error", err)
		}
		return nil, false
	}
	return b, true
}

// CreateNow takes a snapshot regardless of settings.
func (e *Engine) CreateNow(ctx context.Context) (*model.AutoBackup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.record(ctx, e.Settings(ctx))
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	return b, nil
}

// Delete drops the snapshot with id. It reports whether it existed.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	backups := e.list(ctx)
	kept := make([]model.AutoBackup, 0, len(backups))
	for _, b := range backups {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(backups) {
		return false, nil
	}
	if err := e.kv.WriteMany(ctx, map[string]any{store.KeyAutoBackups: kept}); err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	return true, nil
}

// Restore overwrites profiles, food entries, symptom entries and app
// settings with the snapshot's content in one transaction. It returns false
// for unknown ids or when the write fails.
func (e *Engine) Restore(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range e.list(ctx) {
		if b.ID != id {
			continue
		}
		err := e.kv.WriteMany(ctx, map[string]any{
			store.KeyFoodEntries:    b.Data.FoodEntries,
			store.KeySymptomEntries: b.Data.SymptomEntries,
			store.KeyUserProfiles:   b.Data.UserProfiles,
			store.KeyAppSettings:    b.Data.AppSettings,
		})
		if err != nil {
			e.log.Error("restore failed", "id", id, "error", err)
			return false
		}
		e.log.Info("snapshot restored", "id", id)
		return true
	}
	e.log.Warn("restore: unknown snapshot", "id", id)
	return false
}

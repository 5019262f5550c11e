// Package app builds the diary services from configuration and ties the
// auto-backup scheduler to storage writes.
package app

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/rcliao/allergy-diary/internal/analysis"
	"github.com/rcliao/allergy-diary/internal/backup"
	"github.com/rcliao/allergy-diary/internal/config"
	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/premium"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/report"
	"github.com/rcliao/allergy-diary/internal/store"
)

// App holds every service of one running diary.
type App struct {
	Config *config.Config
	Log    *slog.Logger

	Store     *store.SQLiteStore // nil when storage could not be opened
	KV        *store.Adapter
	Premium   *premium.Service
	Quota     *quota.Tracker
	Diary     *diary.Service
	Backup    *backup.Engine
	Scheduler *backup.Scheduler
	Report    *report.Reporter
	Analysis  *analysis.Service
}

// New opens the database named by cfg and wires the services. When the
// database cannot be opened the diary still runs, without persistence.
func New(cfg *config.Config, log *slog.Logger) *App {
	clock := clockwork.NewRealClock()

	path := cfg.Storage.DBPath()
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		log.Warn("storage unavailable, changes will not be saved", "path", path, "error", err)
		return build(cfg, nil, store.Unavailable(log), clock, log)
	}
	return build(cfg, s, store.NewAdapter(s, clock, log), clock, log)
}

func build(cfg *config.Config, s *store.SQLiteStore, kv *store.Adapter, clock clockwork.Clock, log *slog.Logger) *App {
	loc := cfg.Quota.Location()

	a := &App{Config: cfg, Log: log, Store: s, KV: kv}
	a.Premium = premium.NewService(kv, clock, cfg.Premium.EnforceExpiry, log)
	a.Quota = quota.NewTracker(kv, a.Premium, clock, loc, log)
	a.Diary = diary.New(kv, a.Quota, log)
	a.Backup = backup.NewEngine(kv, log)
	a.Report = report.New(kv, a.Quota, loc, log)

	llm := analysis.NewCompleter(analysis.Options{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Models:   cfg.LLM.Models,
		Timeout:  cfg.LLM.Timeout,
	})
	a.Analysis = analysis.New(kv, llm, a.Quota, cfg.LLM.MaxConcurrent, loc, log)

	a.Scheduler = backup.NewScheduler(clock, cfg.Backup.Debounce, a.autoBackup)
	kv.OnWrite(a.Scheduler.Trigger)
	return a
}

func (a *App) autoBackup() {
	if b, ok := a.Backup.CreateAuto(context.Background()); ok {
		a.Log.Debug("automatic snapshot taken", "id", b.ID)
	}
}

// Close runs a pending automatic backup, stops the scheduler and closes the
// database.
func (a *App) Close() error {
	a.Scheduler.Flush()
	a.Scheduler.Stop()
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Package diary implements the profile, food and symptom repositories.
//
// Every collection is stored as one JSON array under its own key. Mutations
// that touch more than one collection are written in a single transaction.
package diary

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

// ErrNotFound is returned by Get, Update and Link for unknown ids.
var ErrNotFound = model.ErrNotFound

// Quota is the subset of the usage tracker the repositories need.
type Quota interface {
	CanIncrement(ctx context.Context, typ quota.Type) bool
	Increment(ctx context.Context, typ quota.Type) bool
	CanCreateProfile(ctx context.Context, current int) bool
}

// Service owns the three collections.
type Service struct {
	kv    *store.Adapter
	quota Quota
	clock clockwork.Clock
	log   *slog.Logger

	mu sync.Mutex

	Profiles *Profiles
	Foods    *Foods
	Symptoms *Symptoms
}

// New creates a diary Service.
func New(kv *store.Adapter, q Quota, log *slog.Logger) *Service {
	s := &Service{
		kv:    kv,
		quota: q,
		clock: kv.Clock(),
		log:   log.With("component", "diary"),
	}
	s.Profiles = &Profiles{s: s}
	s.Foods = &Foods{s: s}
	s.Symptoms = &Symptoms{s: s}
	return s
}

func newID() string {
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// nonNil turns a stored JSON null into an empty collection.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func (s *Service) profiles(ctx context.Context) []model.Profile {
	return nonNil(store.Read(ctx, s.kv, store.KeyUserProfiles, []model.Profile{}))
}

func (s *Service) foods(ctx context.Context) []model.FoodEntry {
	return nonNil(store.Read(ctx, s.kv, store.KeyFoodEntries, []model.FoodEntry{}))
}

func (s *Service) symptoms(ctx context.Context) []model.SymptomEntry {
	return nonNil(store.Read(ctx, s.kv, store.KeySymptomEntries, []model.SymptomEntry{}))
}

func (s *Service) profileExists(ctx context.Context, id string) bool {
	for _, p := range s.profiles(ctx) {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) foodExists(ctx context.Context, id string) bool {
	for _, f := range s.foods(ctx) {
		if f.ID == id {
			return true
		}
	}
	return false
}

// save writes values in one transaction. A missing backend is not an error:
// the host simply has no persistent storage.
func (s *Service) save(ctx context.Context, values map[string]any) error {
	err := s.kv.WriteMany(ctx, values)
	if errors.Is(err, store.ErrUnavailable) {
		s.log.Warn("storage unavailable, change not persisted")
		return nil
	}
	return err
}

// Settings returns the free-form application settings.
func (s *Service) Settings(ctx context.Context) model.AppSettings {
	return store.Read(ctx, s.kv, store.KeyAppSettings, model.AppSettings{})
}

// SaveSettings replaces the application settings.
func (s *Service) SaveSettings(ctx context.Context, st model.AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, map[string]any{store.KeyAppSettings: st})
}

package diary

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/premium"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

type testEnv struct {
	svc     *Service
	quota   *quota.Tracker
	premium *premium.Service
	clock   *clockwork.FakeClock
	kv      *store.Adapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	kv := store.NewAdapter(s, clock, slog.Default())
	p := premium.NewService(kv, clock, true, slog.Default())
	q := quota.NewTracker(kv, p, clock, time.UTC, slog.Default())
	return &testEnv{
		svc:     New(kv, q, slog.Default()),
		quota:   q,
		premium: p,
		clock:   clock,
		kv:      kv,
	}
}

// raiseLimits lifts the free caps so a test can create several records.
func (e *testEnv) raiseLimits(t *testing.T) {
	t.Helper()
	require.NoError(t, e.quota.SetLimits(context.Background(), model.UsageLimits{
		DailyFoodEntries: 50, DailySymptomEntries: 50, DailyExports: 50, MaxProfiles: 10,
	}))
}

func (e *testEnv) addProfile(t *testing.T, name string) *model.Profile {
	t.Helper()
	p, err := e.svc.Profiles.Add(context.Background(), model.Profile{Name: name})
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func TestFoodQuotaScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	p1 := env.addProfile(t, "Anna")

	f, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{p1.ID}})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, env.clock.Now().UTC(), f.Timestamp)
	assert.Equal(t, []string{p1.ID}, f.ProfileIDs)

	second, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Bread", ProfileIDs: []string{p1.ID}})
	require.NoError(t, err)
	assert.Nil(t, second, "second entry of the day exceeds the free quota")
	assert.Len(t, env.svc.Foods.List(ctx), 1)
}

func TestSymptomWithoutProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addProfile(t, "Anna")

	e, err := env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Rash", Category: model.CategorySkin, Severity: model.SeverityMild,
	})
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Empty(t, env.svc.Symptoms.List(ctx))
	assert.Equal(t, 0, env.quota.Usage(ctx).SymptomEntries, "quota must not be consumed")
}

func TestProfileCap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.addProfile(t, "Anna")
	p, err := env.svc.Profiles.Add(ctx, model.Profile{Name: "Ben"})
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Len(t, env.svc.Profiles.List(ctx), 1)
}

func TestDeleteProfileCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.raiseLimits(t)

	p1 := env.addProfile(t, "Anna")
	p2 := env.addProfile(t, "Ben")

	f1, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{p1.ID, p2.ID}})
	require.NoError(t, err)
	f2, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Cheese", ProfileIDs: []string{p1.ID}})
	require.NoError(t, err)

	s1, err := env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Rash", Category: model.CategorySkin, Severity: model.SeverityMild, ProfileID: p1.ID,
	})
	require.NoError(t, err)
	s2, err := env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Cough", Category: model.CategoryRespiratory, Severity: model.SeveritySevere, ProfileID: p2.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Profiles.Delete(ctx, p1.ID))

	_, err = env.svc.Profiles.Get(ctx, p1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Symptoms.Get(ctx, s1.ID)
	assert.ErrorIs(t, err, ErrNotFound, "symptoms of the deleted profile are removed")
	_, err = env.svc.Symptoms.Get(ctx, s2.ID)
	assert.NoError(t, err)

	got1, err := env.svc.Foods.Get(ctx, f1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID}, got1.ProfileIDs)

	got2, err := env.svc.Foods.Get(ctx, f2.ID)
	require.NoError(t, err, "entries left without profiles are kept")
	assert.Empty(t, got2.ProfileIDs)

	for _, f := range env.svc.Foods.List(ctx) {
		assert.False(t, f.HasProfile(p1.ID))
	}
}

func TestDeleteUnknownProfileWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	writes := 0
	env.kv.OnWrite(func() { writes++ })

	require.NoError(t, env.svc.Profiles.Delete(ctx, "nope"))
	assert.Zero(t, writes)
	_, ok := env.kv.LastActivity(ctx)
	assert.False(t, ok, "last activity stays unset")
}

func TestFoodToleratesUnknownProfileNextToKnown(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.addProfile(t, "Anna")

	f, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{p.ID, "ghost"}})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []string{p.ID, "ghost"}, f.ProfileIDs)

	_, err = env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Bread", ProfileIDs: []string{"ghost", "ghost2"}})
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
}

// flakyBackend fails writes while fail is set.
type flakyBackend struct {
	store.Backend
	fail bool
}

func (b *flakyBackend) SetMany(ctx context.Context, values map[string]string) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.Backend.SetMany(ctx, values)
}

func TestFailedSaveKeepsQuota(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	backend := &flakyBackend{Backend: s}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	kv := store.NewAdapter(backend, clock, slog.Default())
	p := premium.NewService(kv, clock, true, slog.Default())
	q := quota.NewTracker(kv, p, clock, time.UTC, slog.Default())
	svc := New(kv, q, slog.Default())

	prof, err := svc.Profiles.Add(ctx, model.Profile{Name: "Anna"})
	require.NoError(t, err)
	require.NotNil(t, prof)

	backend.fail = true
	_, err = svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{prof.ID}})
	require.Error(t, err)
	_, err = svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Rash", Category: model.CategorySkin, Severity: model.SeverityMild, ProfileID: prof.ID,
	})
	require.Error(t, err)
	backend.fail = false

	assert.Zero(t, q.Usage(ctx).FoodEntries)
	assert.Zero(t, q.Usage(ctx).SymptomEntries)

	f, err := svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{prof.ID}})
	require.NoError(t, err)
	require.NotNil(t, f, "the unit is still available")
	assert.Equal(t, 1, q.Usage(ctx).FoodEntries)
}

func TestPremiumUnlimited(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.premium.Activate(ctx, model.SubscriptionLifetime)
	require.NoError(t, err)

	var ids []string
	for _, name := range []string{"Anna", "Ben", "Cleo"} {
		ids = append(ids, env.addProfile(t, name).ID)
	}
	for i := 0; i < 4; i++ {
		f, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: ids[:1]})
		require.NoError(t, err)
		require.NotNil(t, f)
		s, err := env.svc.Symptoms.Add(ctx, SymptomInput{
			Symptom: "Itch", Category: model.CategorySkin, Severity: model.SeverityMild, ProfileID: ids[1],
		})
		require.NoError(t, err)
		require.NotNil(t, s)
	}

	r := env.quota.Remaining(ctx, len(ids))
	assert.True(t, r.FoodEntries.Unlimited)
	assert.True(t, r.SymptomEntries.Unlimited)
	assert.True(t, r.Exports.Unlimited)
	assert.True(t, r.Profiles.Unlimited)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.Profiles.Add(ctx, model.Profile{Name: "  ", Gender: "robot"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)

	p := env.addProfile(t, "Anna")

	_, err = env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk"})
	assert.ErrorIs(t, err, model.ErrValidation, "a food entry needs a profile")
	_, err = env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{"nope"}})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Rash", Category: "elbow", Severity: model.SeverityMild, ProfileID: p.ID,
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Equal(t, 0, env.quota.Usage(ctx).FoodEntries, "rejected input consumes no quota")
	assert.Equal(t, 0, env.quota.Usage(ctx).SymptomEntries)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.addProfile(t, "Anna")

	env.clock.Advance(time.Hour)
	name := "Anna B."
	level := model.LevelHigh
	updated, err := env.svc.Profiles.Update(ctx, p.ID, ProfilePatch{Name: &name, StressLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, "Anna B.", updated.Name)
	assert.Equal(t, model.LevelHigh, updated.StressLevel)
	assert.Equal(t, *p.CreatedAt, *updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(*p.UpdatedAt))

	f, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk", ProfileIDs: []string{p.ID}})
	require.NoError(t, err)
	items := "Oat milk"
	gotF, err := env.svc.Foods.Update(ctx, f.ID, FoodPatch{FoodItems: &items})
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", gotF.FoodItems)
	assert.Equal(t, f.Timestamp, gotF.Timestamp)

	_, err = env.svc.Foods.Update(ctx, "missing", FoodPatch{FoodItems: &items})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.Symptoms.Update(ctx, "missing", SymptomPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkUnlink(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.addProfile(t, "Anna")

	f, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Peanuts", ProfileIDs: []string{p.ID}})
	require.NoError(t, err)
	s, err := env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Hives", Category: model.CategorySkin, Severity: model.SeverityModerate, ProfileID: p.ID,
	})
	require.NoError(t, err)

	linked, err := env.svc.Symptoms.Link(ctx, s.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, linked.LinkedFoodEntryID)
	assert.Len(t, env.svc.Symptoms.Linked(ctx, f.ID), 1)

	_, err = env.svc.Symptoms.Link(ctx, s.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	unlinked, err := env.svc.Symptoms.Unlink(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, unlinked.LinkedFoodEntryID)
	assert.Empty(t, env.svc.Symptoms.Linked(ctx, f.ID))
}

func TestSearchAndRecent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.raiseLimits(t)
	p := env.addProfile(t, "Anna")

	_, err := env.svc.Foods.Add(ctx, FoodInput{FoodItems: "Milk and honey", ProfileIDs: []string{p.ID}})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.svc.Symptoms.Add(ctx, SymptomInput{
		Symptom: "Stomach ache", Category: model.CategoryGastro, Severity: model.SeveritySevere, ProfileID: p.ID,
	})
	require.NoError(t, err)

	res := env.svc.Search(ctx, SearchParams{Query: "MILK"})
	require.Len(t, res, 1)
	assert.Equal(t, "food", res[0].Kind)
	assert.Equal(t, "Anna", res[0].Profile)

	res = env.svc.Search(ctx, SearchParams{Query: "gastro"})
	require.Len(t, res, 1)
	assert.Equal(t, "symptom", res[0].Kind)

	res = env.svc.Search(ctx, SearchParams{Query: "anna"})
	require.Len(t, res, 3, "profile name matches its entries and itself")
	assert.Equal(t, "symptom", res[0].Kind, "newest first")
	assert.Equal(t, "profile", res[2].Kind)

	assert.Empty(t, env.svc.Search(ctx, SearchParams{Query: "  "}))

	recent := env.svc.Recent(ctx, "", 10)
	require.Len(t, recent, 2)
	assert.Equal(t, "symptom", recent[0].Kind)
	assert.Equal(t, "food", recent[1].Kind)

	st := env.svc.Stats(ctx)
	assert.Equal(t, 1, st.Profiles)
	assert.Equal(t, 1, st.FoodEntries)
	assert.Equal(t, 1, st.BySeverity[model.SeveritySevere])
	require.Len(t, st.PerProfile, 1)
	assert.Equal(t, 1, st.PerProfile[0].SymptomEntries)
	require.NotNil(t, st.LastActivity)
}

func TestUnavailableStorage(t *testing.T) {
	ctx := context.Background()
	kv := store.Unavailable(slog.Default())
	clock := clockwork.NewFakeClock()
	p := premium.NewService(kv, clock, true, slog.Default())
	q := quota.NewTracker(kv, p, clock, time.UTC, slog.Default())
	svc := New(kv, q, slog.Default())

	prof, err := svc.Profiles.Add(ctx, model.Profile{Name: "Anna"})
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.Empty(t, svc.Profiles.List(ctx))
}

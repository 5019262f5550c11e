package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/premium"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

type testEnv struct {
	engine  *Engine
	diary   *diary.Service
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
	require.NoError(t, q.SetLimits(context.Background(), model.UsageLimits{
		DailyFoodEntries: 50, DailySymptomEntries: 50, DailyExports: 50, MaxProfiles: 10,
	}))
	return &testEnv{
		engine:  NewEngine(kv, slog.Default()),
		diary:   diary.New(kv, q, slog.Default()),
		premium: p,
		clock:   clock,
		kv:      kv,
	}
}

// populate creates two profiles with a few entries each.
func (e *testEnv) populate(t *testing.T) (p1, p2 *model.Profile) {
	t.Helper()
	ctx := context.Background()
	var err error
	p1, err = e.diary.Profiles.Add(ctx, model.Profile{Name: "Anna", KnownAllergies: []string{"peanuts"}})
	require.NoError(t, err)
	p2, err = e.diary.Profiles.Add(ctx, model.Profile{Name: "Ben", Gender: model.GenderMale})
	require.NoError(t, err)

	f, err := e.diary.Foods.Add(ctx, diary.FoodInput{FoodItems: "Milk, cereal", ProfileIDs: []string{p1.ID, p2.ID}})
	require.NoError(t, err)
	_, err = e.diary.Foods.Add(ctx, diary.FoodInput{FoodItems: "Peanut butter", ProfileIDs: []string{p2.ID}})
	require.NoError(t, err)
	_, err = e.diary.Symptoms.Add(ctx, diary.SymptomInput{
		Symptom: "Hives", Category: model.CategorySkin, Severity: model.SeverityModerate,
		StartTime: "08:30", Duration: "2h", LinkedFoodEntryID: f.ID, ProfileID: p1.ID,
	})
	require.NoError(t, err)
	require.NoError(t, e.diary.SaveSettings(ctx, model.AppSettings{Name: "Family", Notes: "test"}))
	return p1, p2
}

func TestDefaultSettings(t *testing.T) {
	env := newTestEnv(t)
	s := env.engine.Settings(context.Background())
	assert.True(t, s.Enabled)
	assert.Equal(t, model.FrequencyDaily, s.Frequency)
	assert.Equal(t, 7, s.MaxBackups)
	assert.Nil(t, s.LastBackupDate)
}

func TestSaveSettingsValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.engine.SaveSettings(ctx, model.BackupSettings{Enabled: true, Frequency: "hourly", MaxBackups: 0})
	require.Error(t, err)
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)

	require.NoError(t, env.engine.SaveSettings(ctx, model.BackupSettings{Enabled: false, Frequency: model.FrequencyWeekly, MaxBackups: 3}))
	assert.Equal(t, model.FrequencyWeekly, env.engine.Settings(ctx).Frequency)
}

func TestRetentionEvictsOldest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var ids []string
	for i := 0; i < 9; i++ {
		b, err := env.engine.CreateNow(ctx)
		require.NoError(t, err)
		ids = append(ids, b.ID)
		env.clock.Advance(time.Minute)
	}

	list := env.engine.List(ctx)
	require.Len(t, list, 7)
	assert.Equal(t, ids[8], list[0].ID, "newest first")
	assert.Equal(t, ids[2], list[6].ID)
	for _, b := range list {
		assert.NotEqual(t, ids[0], b.ID)
		assert.NotEqual(t, ids[1], b.ID)
	}

	st := env.engine.Settings(ctx)
	require.NotNil(t, st.LastBackupDate)
	assert.Equal(t, list[0].Timestamp, *st.LastBackupDate)
}

func TestShrinkingRetentionTrims(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		_, err := env.engine.CreateNow(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, env.engine.SaveSettings(ctx, model.BackupSettings{Enabled: true, Frequency: model.FrequencyDaily, MaxBackups: 2}))
	assert.Len(t, env.engine.List(ctx), 2)
}

func TestCreateAutoFrequencyGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, ok := env.engine.CreateAuto(ctx)
	require.True(t, ok, "first snapshot is always taken")

	_, ok = env.engine.CreateAuto(ctx)
	assert.False(t, ok)

	env.clock.Advance(23 * time.Hour)
	_, ok = env.engine.CreateAuto(ctx)
	assert.False(t, ok)

	env.clock.Advance(time.Hour)
	_, ok = env.engine.CreateAuto(ctx)
	assert.True(t, ok)
	assert.Len(t, env.engine.List(ctx), 2)

	require.NoError(t, env.engine.SaveSettings(ctx, model.BackupSettings{Enabled: false, Frequency: model.FrequencyDaily, MaxBackups: 7}))
	env.clock.Advance(48 * time.Hour)
	_, ok = env.engine.CreateAuto(ctx)
	assert.False(t, ok, "disabled")
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p1, _ := env.populate(t)

	b, err := env.engine.CreateNow(ctx)
	require.NoError(t, err)
	before := env.engine.snapshot(ctx)

	require.NoError(t, env.diary.Profiles.Delete(ctx, p1.ID))
	require.NoError(t, env.diary.SaveSettings(ctx, model.AppSettings{}))
	assert.Len(t, env.diary.Profiles.List(ctx), 1)

	assert.True(t, env.engine.Restore(ctx, b.ID))
	assert.Equal(t, before, env.engine.snapshot(ctx))

	assert.False(t, env.engine.Restore(ctx, "unknown"))
}

func TestDeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b, err := env.engine.CreateNow(ctx)
	require.NoError(t, err)

	ok, err := env.engine.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, env.engine.List(ctx))

	ok, err = env.engine.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.engine.Get(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestEnv(t)
	src.populate(t)
	_, err := src.premium.Activate(ctx, model.SubscriptionLifetime)
	require.NoError(t, err)

	var buf bytes.Buffer
	doc, err := src.engine.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, 2, doc.Metadata.TotalProfiles)
	assert.Equal(t, 2, doc.Metadata.TotalFoodEntries)
	assert.Equal(t, 1, doc.Metadata.TotalSymptomEntries)
	assert.True(t, doc.Metadata.DataIntegrity.IsValid)
	assert.True(t, doc.Data.PremiumStatus.IsPremium)

	dst := newTestEnv(t)
	res, err := dst.engine.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Version: "2.0", FoodEntries: 2, SymptomEntries: 1, Profiles: 2, AppSettings: true}, res)

	assert.Equal(t, src.diary.Profiles.List(ctx), dst.diary.Profiles.List(ctx))
	assert.Equal(t, src.diary.Foods.List(ctx), dst.diary.Foods.List(ctx))
	assert.Equal(t, src.diary.Symptoms.List(ctx), dst.diary.Symptoms.List(ctx))
	assert.Equal(t, src.diary.Settings(ctx), dst.diary.Settings(ctx))

	assert.False(t, dst.premium.Status(ctx).IsPremium, "premium status is never imported")
}

func TestImportLegacy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	legacy := `{
		"foodEntries": [{"id":"f1","timestamp":"2024-04-01T10:00:00Z","foodItems":"Egg","profileIds":["p1"]}],
		"symptomEntries": [],
		"userProfiles": [{"id":"p1","name":"Anna"}]
	}`
	res, err := env.engine.Import(ctx, strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Version)
	assert.False(t, res.AppSettings)

	f, err := env.diary.Foods.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Egg", f.FoodItems)
}

func TestImportGermanSymptomEnums(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	legacy := `{
		"foodEntries": [],
		"symptomEntries": [{"id":"s1","loggedAt":"2024-04-01T10:00:00Z","symptom":"Juckreiz",
			"category":"Hautreaktionen","severity":"Leicht","startTime":"10:00","duration":"","profileId":"p1"}],
		"userProfiles": [{"id":"p1","name":"Anna"}]
	}`
	_, err := env.engine.Import(ctx, strings.NewReader(legacy))
	require.NoError(t, err)

	got, err := env.diary.Symptoms.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.CategorySkin, got.Category)
	assert.Equal(t, model.SeverityMild, got.Severity)
	assert.Equal(t, 1, got.Severity.Level())

	duration := "2h"
	updated, err := env.diary.Symptoms.Update(ctx, "s1", diary.SymptomPatch{Duration: &duration})
	require.NoError(t, err)
	assert.Equal(t, "2h", updated.Duration)
}

func TestImportRejectsUnknownSymptomEnums(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.populate(t)
	before := env.engine.snapshot(ctx)

	doc := `{
		"foodEntries": [],
		"symptomEntries": [{"id":"s1","loggedAt":"2024-04-01T10:00:00Z","symptom":"Itch",
			"category":"elbow","severity":"Extrem","startTime":"","duration":"","profileId":"p1"}],
		"userProfiles": [{"id":"p1","name":"Anna"}]
	}`
	_, err := env.engine.Import(ctx, strings.NewReader(doc))
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	var fields []string
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"symptomEntries[0].category", "symptomEntries[0].severity"}, fields)
	assert.Equal(t, before, env.engine.snapshot(ctx), "nothing written")
}

func TestImportAllOrNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.populate(t)
	before := env.engine.snapshot(ctx)

	bad := `{"version":"2.0","data":{
		"foodEntries": [{"id":"f1","timestamp":"2024-04-01T10:00:00Z","foodItems":"Egg","profileIds":"p1"}],
		"symptomEntries": [{"id":"s1","loggedAt":"2024-04-01T10:00:00Z","symptom":"Itch","category":"skin","severity":"mild","startTime":"","duration":""}],
		"userProfiles": [{"id":"p1","name":"Anna"}]
	}}`
	_, err := env.engine.Import(ctx, strings.NewReader(bad))
	require.Error(t, err)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	var fields []string
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"foodEntries[0].profileIds", "symptomEntries[0].profileId"}, fields)

	assert.Equal(t, before, env.engine.snapshot(ctx), "nothing written")
}

func TestImportRejectsBadDocuments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for name, doc := range map[string]string{
		"unknown version": `{"version":"3.0","data":{"foodEntries":[],"symptomEntries":[],"userProfiles":[]}}`,
		"missing data":    `{"version":"2.0"}`,
		"missing profile": `{"foodEntries":[],"symptomEntries":[]}`,
		"not json":        `hello`,
		"not an array":    `{"foodEntries":{},"symptomEntries":[],"userProfiles":[]}`,
	} {
		_, err := env.engine.Import(ctx, strings.NewReader(doc))
		assert.ErrorIs(t, err, model.ErrValidation, name)
	}
}

func TestValidateAndClean(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	now := env.clock.Now()
	require.NoError(t, env.kv.WriteMany(ctx, map[string]any{
		store.KeyUserProfiles: []model.Profile{{ID: "p1", Name: "Anna"}, {ID: "p3"}},
		store.KeyFoodEntries: []model.FoodEntry{
			{ID: "f1", Timestamp: now, FoodItems: "Milk", ProfileIDs: []string{"p1", "p2"}},
			{ID: "f2", Timestamp: now, FoodItems: "Egg", ProfileIDs: []string{"p2"}},
		},
		store.KeySymptomEntries: []model.SymptomEntry{
			{ID: "s1", LoggedAt: now, Symptom: "Itch", ProfileID: "p1", LinkedFoodEntryID: "gone"},
			{ID: "s2", LoggedAt: now, Symptom: "Cough", ProfileID: "p2"},
		},
	}))

	r := env.engine.Validate(ctx)
	assert.False(t, r.IsValid)
	assert.Equal(t, []string{"User profile 2: Missing required fields"}, r.Errors)
	assert.Equal(t, []string{
		"Food entry 1: References non-existent profile p2",
		"Food entry 2: References non-existent profile p2",
		"Symptom entry 1: References non-existent food entry",
		"Symptom entry 2: References non-existent profile p2",
	}, r.Warnings)
	assert.Equal(t, r, env.engine.Validate(ctx), "validation is idempotent")

	res, err := env.engine.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, CleanResult{StrippedReferences: 2, RemovedSymptoms: 1}, res)

	f2, err := env.diary.Foods.Get(ctx, "f2")
	require.NoError(t, err, "entries without profiles survive cleaning")
	assert.Empty(t, f2.ProfileIDs)

	after := env.engine.Validate(ctx)
	assert.Equal(t, []string{"Symptom entry 1: References non-existent food entry"}, after.Warnings)

	res, err = env.engine.Clean(ctx)
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestExportIsIndentedJSON(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	_, err := env.engine.Export(context.Background(), &buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "\n  \"version\": \"2.0\"")
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	data := doc["data"].(map[string]any)
	for _, k := range []string{"foodEntries", "symptomEntries", "userProfiles", "appSettings", "premiumStatus", "usageLimits", "backupSettings"} {
		assert.Contains(t, data, k)
	}
	assert.Equal(t, []any{}, data["foodEntries"])
}

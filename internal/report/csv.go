// Package report renders the diary as a spreadsheet-friendly CSV file.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Quota consumes export units.
type Quota interface {
	Increment(ctx context.Context, typ quota.Type) bool
}

var (
	profileHeader = []string{
		"ID", "Name", "Date of Birth", "Gender", "Weight", "Height",
		"Known Allergies", "Chronic Conditions", "Medications", "Dietary Preferences",
		"Activity Level", "Smoking Status", "Alcohol Consumption", "Stress Level", "Sleep Quality",
		"Created At", "Updated At",
	}
	foodHeader    = []string{"ID", "Timestamp", "Food Items", "Profile IDs", "Profile Names", "Photo Link"}
	symptomHeader = []string{
		"ID", "Logged At", "Symptom", "Category", "Severity", "Start Time", "Duration",
		"Linked Food ID", "Profile ID", "Profile Name",
	}
)

const unknownProfile = "Unknown"

// Reporter writes CSV reports.
type Reporter struct {
	kv    *store.Adapter
	quota Quota
	clock clockwork.Clock
	loc   *time.Location
	log   *slog.Logger
}

// New creates a Reporter. loc is used for the export date in the preamble.
func New(kv *store.Adapter, q Quota, loc *time.Location, log *slog.Logger) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{
		kv:    kv,
		quota: q,
		clock: kv.Clock(),
		loc:   loc,
		log:   log.With("component", "report"),
	}
}

// Filename is the suggested file name for a report made at t.
func Filename(t time.Time) string {
	return "allergy_care_data_" + t.Format("2006-01-02") + ".csv"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinAs[T ~string](vs []T) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = string(v)
	}
	return strings.Join(s, "; ")
}

// CSV consumes one export unit and writes the report to w. It returns false,
// writing nothing, when today's export quota is used up.
func (r *Reporter) CSV(ctx context.Context, w io.Writer) (bool, error) {
	if !r.quota.Increment(ctx, quota.Exports) {
		return false, nil
	}

	profiles := store.Read(ctx, r.kv, store.KeyUserProfiles, []model.Profile{})
	foods := store.Read(ctx, r.kv, store.KeyFoodEntries, []model.FoodEntry{})
	symptoms := store.Read(ctx, r.kv, store.KeySymptomEntries, []model.SymptomEntry{})

	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.Name
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return unknownProfile
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	line := func(fields ...string) {
		// csv.Writer keeps the first error; it is reported by Error below.
		_ = cw.Write(fields)
	}

	line("AllergyCare Data Export")
	line("Export Date: " + r.clock.Now().In(r.loc).Format("2006-01-02 15:04:05"))
	line(fmt.Sprintf("Total Food Entries: %d", len(foods)))
	line(fmt.Sprintf("Total Symptom Entries: %d", len(symptoms)))
	line(fmt.Sprintf("Total Profiles: %d", len(profiles)))
	line("")

	line("User Profiles")
	line(profileHeader...)
	for _, p := range profiles {
		line(
			p.ID,
			p.Name,
			p.DateOfBirth,
			string(p.Gender),
			formatFloat(p.Weight),
			formatFloat(p.Height),
			strings.Join(p.KnownAllergies, "; "),
			strings.Join(p.ChronicConditions, "; "),
			strings.Join(p.Medications, "; "),
			joinAs(p.DietaryPreferences),
			string(p.ActivityLevel),
			string(p.SmokingStatus),
			string(p.AlcoholConsumption),
			string(p.StressLevel),
			string(p.SleepQuality),
			formatTime(p.CreatedAt),
			formatTime(p.UpdatedAt),
		)
	}
	line("")

	line("Food Entries")
	line(foodHeader...)
	for _, f := range foods {
		owners := make([]string, len(f.ProfileIDs))
		for i, id := range f.ProfileIDs {
			owners[i] = nameOf(id)
		}
		line(
			f.ID,
			formatTime(&f.Timestamp),
			f.FoodItems,
			strings.Join(f.ProfileIDs, ";"),
			strings.Join(owners, "; "),
			f.Photo,
		)
	}
	line("")

	line("Symptom Entries")
	line(symptomHeader...)
	for _, s := range symptoms {
		line(
			s.ID,
			formatTime(&s.LoggedAt),
			s.Symptom,
			string(s.Category),
			string(s.Severity),
			s.StartTime,
			s.Duration,
			s.LinkedFoodEntryID,
			s.ProfileID,
			nameOf(s.ProfileID),
		)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return true, fmt.Errorf("write csv: %w", err)
	}
	r.log.Info("csv report written", "profiles", len(profiles), "foods", len(foods), "symptoms", len(symptoms))
	return true, nil
}

package diary

import (
	"context"
	"sort"
	"time"

	"github.com/rcliao/allergy-diary/internal/model"
)

// ProfileStats holds per-profile counts.
type ProfileStats struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FoodEntries    int    `json:"foodEntries"`
	SymptomEntries int    `json:"symptomEntries"`
}

// Stats summarizes the diary for the dashboard.
type Stats struct {
	Profiles       int                    `json:"profiles"`
	FoodEntries    int                    `json:"foodEntries"`
	SymptomEntries int                    `json:"symptomEntries"`
	LinkedSymptoms int                    `json:"linkedSymptoms"`
	BySeverity     map[model.Severity]int `json:"bySeverity"`
	ByCategory     map[string]int         `json:"byCategory"`
	PerProfile     []ProfileStats         `json:"perProfile"`
	LastActivity   *time.Time             `json:"lastActivity,omitempty"`
}

// Stats returns totals, per-profile counts and the severity distribution.
func (s *Service) Stats(ctx context.Context) Stats {
	profiles := s.profiles(ctx)
	foods := s.foods(ctx)
	symptoms := s.symptoms(ctx)

	st := Stats{
		Profiles:       len(profiles),
		FoodEntries:    len(foods),
		SymptomEntries: len(symptoms),
		BySeverity:     map[model.Severity]int{},
		ByCategory:     map[string]int{},
	}

	idx := make(map[string]int, len(profiles))
	for i, p := range profiles {
		idx[p.ID] = i
		st.PerProfile = append(st.PerProfile, ProfileStats{ID: p.ID, Name: p.Name})
	}
	for _, f := range foods {
		for _, id := range f.ProfileIDs {
			if i, ok := idx[id]; ok {
				st.PerProfile[i].FoodEntries++
			}
		}
	}
	for _, e := range symptoms {
		st.BySeverity[e.Severity]++
		st.ByCategory[string(e.Category)]++
		if e.LinkedFoodEntryID != "" {
			st.LinkedSymptoms++
		}
		if i, ok := idx[e.ProfileID]; ok {
			st.PerProfile[i].SymptomEntries++
		}
	}

	if t, ok := s.kv.LastActivity(ctx); ok {
		st.LastActivity = &t
	}
	return st
}

// Activity is one food or symptom entry in the merged timeline.
type Activity struct {
	Kind    string              `json:"kind"`
	Time    time.Time           `json:"time"`
	Food    *model.FoodEntry    `json:"food,omitempty"`
	Symptom *model.SymptomEntry `json:"symptom,omitempty"`
}

// Recent returns the newest food and symptom entries merged into one list,
// newest first. A non-empty profileID restricts the list to that profile.
func (s *Service) Recent(ctx context.Context, profileID string, limit int) []Activity {
	if limit <= 0 {
		limit = 10
	}

	var out []Activity
	for _, f := range s.foods(ctx) {
		if profileID != "" && !f.HasProfile(profileID) {
			continue
		}
		out = append(out, Activity{Kind: "food", Time: f.Timestamp, Food: &f})
	}
	for _, e := range s.symptoms(ctx) {
		if profileID != "" && e.ProfileID != profileID {
			continue
		}
		out = append(out, Activity{Kind: "symptom", Time: e.LoggedAt, Symptom: &e})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

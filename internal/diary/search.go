package diary

import (
	"context"
	"sort"
	"strings"
	"time"
)

// SearchParams holds parameters for searching the diary.
type SearchParams struct {
	Query     string
	ProfileID string
	Kind      string // food | symptom | profile, empty for all
	Limit     int
}

// SearchResult is one matching record.
type SearchResult struct {
	Kind    string    `json:"kind"`
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time,omitzero"`
	Profile string    `json:"profile,omitempty"`
}

// Search finds food items, symptoms, categories and profile names containing
// the query, case-insensitively. Results are newest first; profiles last.
func (s *Service) Search(ctx context.Context, p SearchParams) []SearchResult {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(strings.TrimSpace(p.Query))
	if q == "" {
		return nil
	}
	match := func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	}
	want := func(kind string) bool { return p.Kind == "" || p.Kind == kind }

	profiles := s.profiles(ctx)
	names := make(map[string]string, len(profiles))
	for _, pr := range profiles {
		names[pr.ID] = pr.Name
	}

	var results []SearchResult
	if want("food") {
		for _, f := range s.foods(ctx) {
			if p.ProfileID != "" && !f.HasProfile(p.ProfileID) {
				continue
			}
			var owners []string
			for _, id := range f.ProfileIDs {
				if n, ok := names[id]; ok {
					owners = append(owners, n)
				}
			}
			if !match(append([]string{f.FoodItems}, owners...)...) {
				continue
			}
			results = append(results, SearchResult{
				Kind:    "food",
				ID:      f.ID,
				Title:   f.FoodItems,
				Time:    f.Timestamp,
				Profile: strings.Join(owners, ", "),
			})
		}
	}
	if want("symptom") {
		for _, e := range s.symptoms(ctx) {
			if p.ProfileID != "" && e.ProfileID != p.ProfileID {
				continue
			}
			if !match(e.Symptom, string(e.Category), names[e.ProfileID]) {
				continue
			}
			results = append(results, SearchResult{
				Kind:    "symptom",
				ID:      e.ID,
				Title:   e.Symptom,
				Detail:  string(e.Category) + ", " + string(e.Severity),
				Time:    e.LoggedAt,
				Profile: names[e.ProfileID],
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Time.After(results[j].Time)
	})

	if want("profile") {
		for _, pr := range profiles {
			if p.ProfileID != "" && pr.ID != p.ProfileID {
				continue
			}
			if !match(pr.Name) {
				continue
			}
			results = append(results, SearchResult{Kind: "profile", ID: pr.ID, Title: pr.Name})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

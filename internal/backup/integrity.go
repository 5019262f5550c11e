package backup

import (
	"context"
	"fmt"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// IntegrityReport lists problems found in the stored collections. Errors
// are malformed records; warnings are dangling references.
type IntegrityReport struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CheckIntegrity cross-checks the given collections.
func CheckIntegrity(foods []model.FoodEntry, symptoms []model.SymptomEntry, profiles []model.Profile) IntegrityReport {
	r := IntegrityReport{Errors: []string{}, Warnings: []string{}}

	ids := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		ids[p.ID] = true
	}
	foodIDs := make(map[string]bool, len(foods))
	for _, f := range foods {
		foodIDs[f.ID] = true
	}

	for i, f := range foods {
		n := i + 1
		if f.ID == "" || f.Timestamp.IsZero() || f.FoodItems == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("Food entry %d: Missing required fields", n))
		}
		if f.ProfileIDs == nil {
			r.Errors = append(r.Errors, fmt.Sprintf("Food entry %d: Invalid profileIds format", n))
			continue
		}
		for _, pid := range f.ProfileIDs {
			if !ids[pid] {
				r.Warnings = append(r.Warnings, fmt.Sprintf("Food entry %d: References non-existent profile %s", n, pid))
			}
		}
	}

	for i, s := range symptoms {
		n := i + 1
		if s.ID == "" || s.LoggedAt.IsZero() || s.Symptom == "" || s.ProfileID == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("Symptom entry %d: Missing required fields", n))
		}
		if !ids[s.ProfileID] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Symptom entry %d: References non-existent profile %s", n, s.ProfileID))
		}
		if s.LinkedFoodEntryID != "" && !foodIDs[s.LinkedFoodEntryID] {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Symptom entry %d: References non-existent food entry", n))
		}
	}

	for i, p := range profiles {
		if p.ID == "" || p.Name == "" {
			r.Errors = append(r.Errors, fmt.Sprintf("User profile %d: Missing required fields", i+1))
		}
	}

	r.IsValid = len(r.Errors) == 0
	return r
}

// Validate scans the stored data. It writes nothing.
func (e *Engine) Validate(ctx context.Context) IntegrityReport {
	snap := e.snapshot(ctx)
	return CheckIntegrity(snap.FoodEntries, snap.SymptomEntries, snap.UserProfiles)
}

// CleanResult counts what Clean changed.
type CleanResult struct {
	StrippedReferences int `json:"strippedReferences"`
	RemovedSymptoms    int `json:"removedSymptoms"`
}

// Clean removes references to profiles that no longer exist: unknown ids
// are stripped from food entries and symptom entries of unknown profiles are
// deleted. Food entries left without profiles are kept.
func (e *Engine) Clean(ctx context.Context) (CleanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshot(ctx)
	ids := make(map[string]bool, len(snap.UserProfiles))
	for _, p := range snap.UserProfiles {
		ids[p.ID] = true
	}

	var res CleanResult
	foods := snap.FoodEntries
	for i := range foods {
		kept := make([]string, 0, len(foods[i].ProfileIDs))
		for _, pid := range foods[i].ProfileIDs {
			if ids[pid] {
				kept = append(kept, pid)
			} else {
				res.StrippedReferences++
			}
		}
		foods[i].ProfileIDs = kept
	}

	symptoms := make([]model.SymptomEntry, 0, len(snap.SymptomEntries))
	for _, s := range snap.SymptomEntries {
		if ids[s.ProfileID] {
			symptoms = append(symptoms, s)
		} else {
			res.RemovedSymptoms++
		}
	}

	if res == (CleanResult{}) {
		return res, nil
	}
	if err := e.kv.WriteMany(ctx, map[string]any{
		store.KeyFoodEntries:    foods,
		store.KeySymptomEntries: symptoms,
	}); err != nil {
		return CleanResult{}, fmt.Errorf("clean: %w", err)
	}
	e.log.Info("dangling references removed", "stripped", res.StrippedReferences, "symptoms_removed", res.RemovedSymptoms)
	return res, nil
}

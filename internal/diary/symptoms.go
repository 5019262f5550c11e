package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Symptoms is the symptom entry repository.
type Symptoms struct {
	s *Service
}

// SymptomInput is what a caller supplies for a new symptom entry.
type SymptomInput struct {
	Symptom           string                `json:"symptom"`
	Category          model.SymptomCategory `json:"category"`
	Severity          model.Severity        `json:"severity"`
	StartTime         string                `json:"startTime"`
	Duration          string                `json:"duration"`
	LinkedFoodEntryID string                `json:"linkedFoodEntryId,omitempty"`
	ProfileID         string                `json:"profileId"`
}

// SymptomPatch lists the symptom fields Update may change.
type SymptomPatch struct {
	Symptom   *string                `json:"symptom,omitempty"`
	Category  *model.SymptomCategory `json:"category,omitempty"`
	Severity  *model.Severity        `json:"severity,omitempty"`
	StartTime *string                `json:"startTime,omitempty"`
	Duration  *string                `json:"duration,omitempty"`
	ProfileID *string                `json:"profileId,omitempty"`
}

func validateSymptom(e model.SymptomEntry) *model.ValidationError {
	verr := &model.ValidationError{}
	if strings.TrimSpace(e.Symptom) == "" {
		verr.Add("symptom", "required")
	}
	if !model.ValidCategories[e.Category] {
		verr.Add("category", fmt.Sprintf("invalid value %q (valid: skin, gastro, respiratory, general)", e.Category))
	}
	if !model.ValidSeverities[e.Severity] {
		verr.Add("severity", fmt.Sprintf("invalid value %q (valid: mild, moderate, severe)", e.Severity))
	}
	return verr
}

// List returns all symptom entries in insertion order.
func (r *Symptoms) List(ctx context.Context) []model.SymptomEntry {
	return r.s.symptoms(ctx)
}

// ForProfile returns the entries owned by profileID.
func (r *Symptoms) ForProfile(ctx context.Context, profileID string) []model.SymptomEntry {
	var out []model.SymptomEntry
	for _, e := range r.s.symptoms(ctx) {
		if e.ProfileID == profileID {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the symptom entry with id.
func (r *Symptoms) Get(ctx context.Context, id string) (*model.SymptomEntry, error) {
	for _, e := range r.s.symptoms(ctx) {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("symptom entry %s: %w", id, ErrNotFound)
}

// Add logs a symptom. It returns (nil, nil) without consuming quota when no
// profile is given, and (nil, nil) when today's symptom quota is used up.
func (r *Symptoms) Add(ctx context.Context, in SymptomInput) (*model.SymptomEntry, error) {
	if strings.TrimSpace(in.ProfileID) == "" {
		r.s.log.Warn("symptom entry without profile rejected")
		return nil, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	entry := model.SymptomEntry{
		ID:                newID(),
		LoggedAt:          now,
		Symptom:           strings.TrimSpace(in.Symptom),
		Category:          in.Category,
		Severity:          in.Severity,
		StartTime:         in.StartTime,
		Duration:          in.Duration,
		LinkedFoodEntryID: in.LinkedFoodEntryID,
		ProfileID:         in.ProfileID,
	}
	if entry.StartTime == "" {
		entry.StartTime = now.Format(time.RFC3339)
	}

	verr := validateSymptom(entry)
	if !r.s.profileExists(ctx, entry.ProfileID) {
		verr.Add("profileId", fmt.Sprintf("unknown profile %q", entry.ProfileID))
	}
	if entry.LinkedFoodEntryID != "" && !r.s.foodExists(ctx, entry.LinkedFoodEntryID) {
		verr.Add("linkedFoodEntryId", fmt.Sprintf("unknown food entry %q", entry.LinkedFoodEntryID))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if !r.s.quota.CanIncrement(ctx, quota.SymptomEntries) {
		return nil, nil
	}

	symptoms := r.s.symptoms(ctx)
	if err := r.s.save(ctx, map[string]any{
		store.KeySymptomEntries: append(symptoms, entry),
	}); err != nil {
		return nil, fmt.Errorf("save symptom entry: %w", err)
	}
	r.s.quota.Increment(ctx, quota.SymptomEntries)
	return &entry, nil
}

// Update applies patch to the symptom entry with id. It does not consume
// quota. An empty profile id in the patch keeps the current owner.
func (r *Symptoms) Update(ctx context.Context, id string, patch SymptomPatch) (*model.SymptomEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	symptoms := r.s.symptoms(ctx)
	for i := range symptoms {
		if symptoms[i].ID != id {
			continue
		}
		e := symptoms[i]
		if patch.Symptom != nil {
			e.Symptom = strings.TrimSpace(*patch.Symptom)
		}
		if patch.Category != nil {
			e.Category = *patch.Category
		}
		if patch.Severity != nil {
			e.Severity = *patch.Severity
		}
		if patch.StartTime != nil {
			e.StartTime = *patch.StartTime
		}
		if patch.Duration != nil {
			e.Duration = *patch.Duration
		}

		verr := validateSymptom(e)
		if patch.ProfileID != nil && *patch.ProfileID != "" {
			if r.s.profileExists(ctx, *patch.ProfileID) {
				e.ProfileID = *patch.ProfileID
			} else {
				verr.Add("profileId", fmt.Sprintf("unknown profile %q", *patch.ProfileID))
			}
		}
		if err := verr.OrNil(); err != nil {
			return nil, err
		}
		symptoms[i] = e

		if err := r.s.save(ctx, map[string]any{store.KeySymptomEntries: symptoms}); err != nil {
			return nil, fmt.Errorf("save symptom entry: %w", err)
		}
		return &e, nil
	}
	return nil, fmt.Errorf("symptom entry %s: %w", id, ErrNotFound)
}

// Delete removes the symptom entry with id. Unknown ids are a no-op.
func (r *Symptoms) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	symptoms := r.s.symptoms(ctx)
	kept := symptoms[:0]
	for _, e := range symptoms {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(symptoms) {
		return nil
	}
	if err := r.s.save(ctx, map[string]any{store.KeySymptomEntries: kept}); err != nil {
		return fmt.Errorf("delete symptom entry: %w", err)
	}
	return nil
}

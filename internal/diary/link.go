package diary

import (
	"context"
	"fmt"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Link records that a symptom is suspected to be caused by a meal. The link
// is weak: deleting the food entry later leaves it dangling.
func (r *Symptoms) Link(ctx context.Context, symptomID, foodID string) (*model.SymptomEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.foodExists(ctx, foodID) {
		return nil, fmt.Errorf("food entry %s: %w", foodID, ErrNotFound)
	}
	return r.setLink(ctx, symptomID, foodID)
}

// Unlink clears a symptom's food link.
func (r *Symptoms) Unlink(ctx context.Context, symptomID string) (*model.SymptomEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.setLink(ctx, symptomID, "")
}

func (r *Symptoms) setLink(ctx context.Context, symptomID, foodID string) (*model.SymptomEntry, error) {
	symptoms := r.s.symptoms(ctx)
	for i := range symptoms {
		if symptoms[i].ID != symptomID {
			continue
		}
		symptoms[i].LinkedFoodEntryID = foodID
		if err := r.s.save(ctx, map[string]any{store.KeySymptomEntries: symptoms}); err != nil {
			return nil, fmt.Errorf("save link: %w", err)
		}
		e := symptoms[i]
		return &e, nil
	}
	return nil, fmt.Errorf("symptom entry %s: %w", symptomID, ErrNotFound)
}

// Linked returns the symptoms linked to foodID.
func (r *Symptoms) Linked(ctx context.Context, foodID string) []model.SymptomEntry {
	var out []model.SymptomEntry
	for _, e := range r.s.symptoms(ctx) {
		if e.LinkedFoodEntryID == foodID {
			out = append(out, e)
		}
	}
	return out
}

package diary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Foods is the food entry repository.
type Foods struct {
	s *Service
}

// FoodInput is what a caller supplies for a new food entry.
type FoodInput struct {
	FoodItems  string   `json:"foodItems"`
	Photo      string   `json:"photo,omitempty"`
	ProfileIDs []string `json:"profileIds"`
}

// FoodPatch lists the food entry fields Update may change.
type FoodPatch struct {
	FoodItems  *string   `json:"foodItems,omitempty"`
	Photo      *string   `json:"photo,omitempty"`
	ProfileIDs *[]string `json:"profileIds,omitempty"`
}

// validate checks an entry. Profile ids are only checked when checkProfiles
// is set, so entries orphaned by a profile deletion stay editable. At least
// one id must name an existing profile; unknown ids next to it are kept.
func (r *Foods) validate(ctx context.Context, items string, profileIDs []string, checkProfiles bool) error {
	verr := &model.ValidationError{}
	if strings.TrimSpace(items) == "" {
		verr.Add("foodItems", "required")
	}
	if !checkProfiles {
		return verr.OrNil()
	}
	if len(profileIDs) == 0 {
		verr.Add("profileIds", "at least one profile is required")
		return verr.OrNil()
	}
	seen := make(map[string]bool, len(profileIDs))
	var unknown []int
	for i, id := range profileIDs {
		switch {
		case seen[id]:
			verr.Add(fmt.Sprintf("profileIds[%d]", i), "duplicate profile")
		case !r.s.profileExists(ctx, id):
			unknown = append(unknown, i)
		}
		seen[id] = true
	}
	if len(unknown) == len(seen) {
		for _, i := range unknown {
			verr.Add(fmt.Sprintf("profileIds[%d]", i), fmt.Sprintf("unknown profile %q", profileIDs[i]))
		}
	} else if len(unknown) > 0 {
		r.s.log.Warn("food entry references unknown profiles", "count", len(unknown))
	}
	return verr.OrNil()
}

// List returns all food entries in insertion order.
func (r *Foods) List(ctx context.Context) []model.FoodEntry {
	return r.s.foods(ctx)
}

// ForProfile returns the entries associated with profileID.
func (r *Foods) ForProfile(ctx context.Context, profileID string) []model.FoodEntry {
	var out []model.FoodEntry
	for _, f := range r.s.foods(ctx) {
		if f.HasProfile(profileID) {
			out = append(out, f)
		}
	}
	return out
}

// Get returns the food entry with id.
func (r *Foods) Get(ctx context.Context, id string) (*model.FoodEntry, error) {
	for _, f := range r.s.foods(ctx) {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("food entry %s: %w", id, ErrNotFound)
}

// Add logs a meal. It returns (nil, nil) when today's food quota is used up.
func (r *Foods) Add(ctx context.Context, in FoodInput) (*model.FoodEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.validate(ctx, in.FoodItems, in.ProfileIDs, true); err != nil {
		return nil, err
	}
	if !r.s.quota.CanIncrement(ctx, quota.FoodEntries) {
		return nil, nil
	}

	entry := model.FoodEntry{
		ID:         newID(),
		Timestamp:  r.s.now(),
		FoodItems:  strings.TrimSpace(in.FoodItems),
		Photo:      in.Photo,
		ProfileIDs: append([]string(nil), in.ProfileIDs...),
	}
	foods := r.s.foods(ctx)
	if err := r.s.save(ctx, map[string]any{
		store.KeyFoodEntries: append(foods, entry),
	}); err != nil {
		return nil, fmt.Errorf("save food entry: %w", err)
	}
	r.s.quota.Increment(ctx, quota.FoodEntries)
	return &entry, nil
}

// Update applies patch to the food entry with id. It does not consume quota.
func (r *Foods) Update(ctx context.Context, id string, patch FoodPatch) (*model.FoodEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	foods := r.s.foods(ctx)
	for i := range foods {
		if foods[i].ID != id {
			continue
		}
		f := foods[i]
		if patch.FoodItems != nil {
			f.FoodItems = strings.TrimSpace(*patch.FoodItems)
		}
		if patch.Photo != nil {
			f.Photo = *patch.Photo
		}
		if patch.ProfileIDs != nil {
			f.ProfileIDs = append([]string(nil), (*patch.ProfileIDs)...)
		}
		if err := r.validate(ctx, f.FoodItems, f.ProfileIDs, patch.ProfileIDs != nil); err != nil {
			return nil, err
		}
		foods[i] = f

		if err := r.s.save(ctx, map[string]any{store.KeyFoodEntries: foods}); err != nil {
			return nil, fmt.Errorf("save food entry: %w", err)
		}
		return &f, nil
	}
	return nil, fmt.Errorf("food entry %s: %w", id, ErrNotFound)
}

// Delete removes the food entry with id. Symptoms linked to it keep their
// dangling link. Unknown ids are a no-op.
func (r *Foods) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	foods := r.s.foods(ctx)
	kept := foods[:0]
	for _, f := range foods {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(foods) {
		return nil
	}
	if err := r.s.save(ctx, map[string]any{store.KeyFoodEntries: kept}); err != nil {
		return fmt.Errorf("delete food entry: %w", err)
	}
	return nil
}

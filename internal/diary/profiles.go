package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Profiles is the profile repository.
type Profiles struct {
	s *Service
}

// ProfilePatch lists the profile fields Update may change. Nil fields are
// left as they are.
type ProfilePatch struct {
	Name               *string                    `json:"name,omitempty"`
	DateOfBirth        *string                    `json:"dateOfBirth,omitempty"`
	Gender             *model.Gender              `json:"gender,omitempty"`
	Weight             *float64                   `json:"weight,omitempty"`
	Height             *float64                   `json:"height,omitempty"`
	KnownAllergies     *[]string                  `json:"knownAllergies,omitempty"`
	ChronicConditions  *[]string                  `json:"chronicConditions,omitempty"`
	Medications        *[]string                  `json:"medications,omitempty"`
	DietaryPreferences *[]model.DietaryPreference `json:"dietaryPreferences,omitempty"`
	ActivityLevel      *model.Level               `json:"activityLevel,omitempty"`
	SmokingStatus      *model.SmokingStatus       `json:"smokingStatus,omitempty"`
	AlcoholConsumption *model.AlcoholConsumption  `json:"alcoholConsumption,omitempty"`
	StressLevel        *model.Level               `json:"stressLevel,omitempty"`
	SleepQuality       *model.SleepQuality        `json:"sleepQuality,omitempty"`
	Avatar             *string                    `json:"avatar,omitempty"`
}

func (p ProfilePatch) apply(dst *model.Profile) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.DateOfBirth != nil {
		dst.DateOfBirth = *p.DateOfBirth
	}
	if p.Gender != nil {
		dst.Gender = *p.Gender
	}
	if p.Weight != nil {
		dst.Weight = *p.Weight
	}
	if p.Height != nil {
		dst.Height = *p.Height
	}
	if p.KnownAllergies != nil {
		dst.KnownAllergies = *p.KnownAllergies
	}
	if p.ChronicConditions != nil {
		dst.ChronicConditions = *p.ChronicConditions
	}
	if p.Medications != nil {
		dst.Medications = *p.Medications
	}
	if p.DietaryPreferences != nil {
		dst.DietaryPreferences = *p.DietaryPreferences
	}
	if p.ActivityLevel != nil {
		dst.ActivityLevel = *p.ActivityLevel
	}
	if p.SmokingStatus != nil {
		dst.SmokingStatus = *p.SmokingStatus
	}
	if p.AlcoholConsumption != nil {
		dst.AlcoholConsumption = *p.AlcoholConsumption
	}
	if p.StressLevel != nil {
		dst.StressLevel = *p.StressLevel
	}
	if p.SleepQuality != nil {
		dst.SleepQuality = *p.SleepQuality
	}
	if p.Avatar != nil {
		dst.Avatar = *p.Avatar
	}
}

// ValidateProfile checks the fields a caller supplies.
func ValidateProfile(p model.Profile) error {
	verr := &model.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("name", "required")
	}
	if p.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", p.DateOfBirth); err != nil {
			verr.Add("dateOfBirth", "must be YYYY-MM-DD")
		}
	}
	if p.Gender != "" && !model.ValidGenders[p.Gender] {
		verr.Add("gender", fmt.Sprintf("invalid value %q", p.Gender))
	}
	if p.Weight < 0 {
		verr.Add("weight", "must not be negative")
	}
	if p.Height < 0 {
		verr.Add("height", "must not be negative")
	}
	for i, d := range p.DietaryPreferences {
		if !model.ValidDiets[d] {
			verr.Add(fmt.Sprintf("dietaryPreferences[%d]", i), fmt.Sprintf("invalid value %q", d))
		}
	}
	if p.ActivityLevel != "" && !model.ValidLevels[p.ActivityLevel] {
		verr.Add("activityLevel", fmt.Sprintf("invalid value %q", p.ActivityLevel))
	}
	if p.StressLevel != "" && !model.ValidLevels[p.StressLevel] {
		verr.Add("stressLevel", fmt.Sprintf("invalid value %q", p.StressLevel))
	}
	if p.SmokingStatus != "" && !model.ValidSmoking[p.SmokingStatus] {
		verr.Add("smokingStatus", fmt.Sprintf("invalid value %q", p.SmokingStatus))
	}
	if p.AlcoholConsumption != "" && !model.ValidAlcohol[p.AlcoholConsumption] {
		verr.Add("alcoholConsumption", fmt.Sprintf("invalid value %q", p.AlcoholConsumption))
	}
	if p.SleepQuality != "" && !model.ValidSleep[p.SleepQuality] {
		verr.Add("sleepQuality", fmt.Sprintf("invalid value %q", p.SleepQuality))
	}
	return verr.OrNil()
}

// List returns all profiles in insertion order.
func (r *Profiles) List(ctx context.Context) []model.Profile {
	return r.s.profiles(ctx)
}

// Get returns the profile with id.
func (r *Profiles) Get(ctx context.Context, id string) (*model.Profile, error) {
	for _, p := range r.s.profiles(ctx) {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
}

// Add creates a profile. It returns (nil, nil) when the profile cap is
// reached.
func (r *Profiles) Add(ctx context.Context, in model.Profile) (*model.Profile, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := ValidateProfile(in); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profiles := r.s.profiles(ctx)
	if !r.s.quota.CanCreateProfile(ctx, len(profiles)) {
		r.s.log.Info("profile limit reached", "profiles", len(profiles))
		return nil, nil
	}

	now := r.s.now()
	in.ID = newID()
	in.CreatedAt = &now
	in.UpdatedAt = &now

	if err := r.s.save(ctx, map[string]any{
		store.KeyUserProfiles: append(profiles, in),
	}); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &in, nil
}

// Update applies patch to the profile with id and refreshes updatedAt.
func (r *Profiles) Update(ctx context.Context, id string, patch ProfilePatch) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profiles := r.s.profiles(ctx)
	for i := range profiles {
		if profiles[i].ID != id {
			continue
		}
		p := profiles[i]
		patch.apply(&p)
		p.Name = strings.TrimSpace(p.Name)
		if err := ValidateProfile(p); err != nil {
			return nil, err
		}
		now := r.s.now()
		p.UpdatedAt = &now
		profiles[i] = p

		if err := r.s.save(ctx, map[string]any{store.KeyUserProfiles: profiles}); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
}

// Delete removes the profile with id. Its id is stripped from every food
// entry and the symptom entries it owns are deleted, all in one transaction.
// Food entries left without any profile are kept. Unknown ids are a no-op.
func (r *Profiles) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profiles := r.s.profiles(ctx)
	kept := profiles[:0]
	for _, p := range profiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(profiles) {
		return nil
	}

	foods := r.s.foods(ctx)
	for i := range foods {
		ids := make([]string, 0, len(foods[i].ProfileIDs))
		for _, pid := range foods[i].ProfileIDs {
			if pid != id {
				ids = append(ids, pid)
			}
		}
		foods[i].ProfileIDs = ids
	}

	symptoms := r.s.symptoms(ctx)
	keptSymptoms := symptoms[:0]
	removed := 0
	for _, e := range symptoms {
		if e.ProfileID == id {
			removed++
			continue
		}
		keptSymptoms = append(keptSymptoms, e)
	}

	if err := r.s.save(ctx, map[string]any{
		store.KeyUserProfiles:   kept,
		store.KeyFoodEntries:    foods,
		store.KeySymptomEntries: keptSymptoms,
	}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	r.s.log.Info("profile deleted", "id", id, "symptoms_removed", removed)
	return nil
}

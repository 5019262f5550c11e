// Package model defines the diary data types shared by every layer.
package model

import "time"

// Profile is one diary owner, e.g. a family member.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	DateOfBirth string  `json:"dateOfBirth,omitempty"`
	Gender      Gender  `json:"gender,omitempty"`
	Weight      float64 `json:"weight,omitempty"` // kg
	Height      float64 `json:"height,omitempty"` // cm

	KnownAllergies    []string `json:"knownAllergies,omitempty"`
	ChronicConditions []string `json:"chronicConditions,omitempty"`
	Medications       []string `json:"medications,omitempty"`

	DietaryPreferences []DietaryPreference `json:"dietaryPreferences,omitempty"`
	ActivityLevel      Level               `json:"activityLevel,omitempty"`
	SmokingStatus      SmokingStatus       `json:"smokingStatus,omitempty"`
	AlcoholConsumption AlcoholConsumption  `json:"alcoholConsumption,omitempty"`

	StressLevel  Level        `json:"stressLevel,omitempty"`
	SleepQuality SleepQuality `json:"sleepQuality,omitempty"`

	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// FoodEntry is one logged meal.
type FoodEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	FoodItems  string    `json:"foodItems"`
	Photo      string    `json:"photo,omitempty"`
	ProfileIDs []string  `json:"profileIds"`
}

// HasProfile reports whether the entry is associated with profileID.
func (f FoodEntry) HasProfile(profileID string) bool {
	for _, id := range f.ProfileIDs {
		if id == profileID {
			return true
		}
	}
	return false
}

// SymptomEntry is one logged symptom occurrence.
type SymptomEntry struct {
	ID                string          `json:"id"`
	LoggedAt          time.Time       `json:"loggedAt"`
	Symptom           string          `json:"symptom"`
	Category          SymptomCategory `json:"category"`
	Severity          Severity        `json:"severity"`
	StartTime         string          `json:"startTime"`
	Duration          string          `json:"duration"`
	LinkedFoodEntryID string          `json:"linkedFoodEntryId,omitempty"`
	ProfileID         string          `json:"profileId"`
}

// AppSettings holds free-form application settings.
type AppSettings struct {
	Name  string `json:"name,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// PremiumStatus is the subscription record written by checkout flows.
type PremiumStatus struct {
	IsPremium        bool             `json:"isPremium"`
	SubscriptionType SubscriptionType `json:"subscriptionType,omitempty"`
	SubscriptionDate *time.Time       `json:"subscriptionDate,omitempty"`
	ExpiryDate       *time.Time       `json:"expiryDate,omitempty"`
}

// UsageLimits holds the free-tier caps and the last day they were reset.
type UsageLimits struct {
	DailyFoodEntries    int    `json:"dailyFoodEntries"`
	DailySymptomEntries int    `json:"dailySymptomEntries"`
	DailyExports        int    `json:"dailyExports"`
	MaxProfiles         int    `json:"maxProfiles"`
	LastResetDate       string `json:"lastResetDate"`
}

// DailyUsage counts what was consumed on Date.
type DailyUsage struct {
	FoodEntries    int    `json:"foodEntries"`
	SymptomEntries int    `json:"symptomEntries"`
	Exports        int    `json:"exports"`
	Date           string `json:"date"`
}

// Snapshot is the payload of an automatic backup.
type Snapshot struct {
	FoodEntries    []FoodEntry    `json:"foodEntries"`
	SymptomEntries []SymptomEntry `json:"symptomEntries"`
	UserProfiles   []Profile      `json:"userProfiles"`
	AppSettings    AppSettings    `json:"appSettings"`
}

// AutoBackup is an immutable point-in-time copy of all collections.
type AutoBackup struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      Snapshot  `json:"data"`
}

// BackupSettings governs automatic snapshots.
type BackupSettings struct {
	Enabled        bool            `json:"enabled"`
	Frequency      BackupFrequency `json:"frequency"`
	MaxBackups     int             `json:"maxBackups"`
	LastBackupDate *time.Time      `json:"lastBackupDate,omitempty"`
}

// AiSuggestion is the parsed answer of the trigger analysis.
type AiSuggestion struct {
	PossibleTriggers []string  `json:"possibleTriggers"`
	Explanation      string    `json:"explanation"`
	Suggestions      []string  `json:"suggestions,omitempty"`
	Response         string    `json:"response,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

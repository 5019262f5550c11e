package model

import "time"

// Gender of a profile owner.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderDiverse     Gender = "diverse"
	GenderUnspecified Gender = "unspecified"
)

// DietaryPreference is one entry of a profile's diet set.
type DietaryPreference string

const (
	DietVegetarian  DietaryPreference = "vegetarian"
	DietVegan       DietaryPreference = "vegan"
	DietGlutenFree  DietaryPreference = "gluten_free"
	DietLactoseFree DietaryPreference = "lactose_free"
	DietOther       DietaryPreference = "other"
)

// Level is a low/medium/high scale used for activity and stress.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

type SmokingStatus string

const (
	SmokingNever      SmokingStatus = "never"
	SmokingFormer     SmokingStatus = "former"
	SmokingOccasional SmokingStatus = "occasional"
	SmokingRegular    SmokingStatus = "regular"
)

type AlcoholConsumption string

const (
	AlcoholNever    AlcoholConsumption = "never"
	AlcoholRarely   AlcoholConsumption = "rarely"
	AlcoholModerate AlcoholConsumption = "moderate"
	AlcoholFrequent AlcoholConsumption = "frequent"
)

type SleepQuality string

const (
	SleepPoor     SleepQuality = "poor"
	SleepFair     SleepQuality = "fair"
	SleepGood     SleepQuality = "good"
	SleepVeryGood SleepQuality = "very_good"
)

// SymptomCategory is the closed set of symptom groups.
type SymptomCategory string

const (
	CategorySkin        SymptomCategory = "skin"
	CategoryGastro      SymptomCategory = "gastro"
	CategoryRespiratory SymptomCategory = "respiratory"
	CategoryGeneral     SymptomCategory = "general"
)

// Severity of a symptom.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Level maps a severity to 1..3. Unknown values count as mild.
func (s Severity) Level() int {
	switch s {
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return 1
	}
}

type SubscriptionType string

const (
	SubscriptionMonthly  SubscriptionType = "monthly"
	SubscriptionYearly   SubscriptionType = "yearly"
	SubscriptionLifetime SubscriptionType = "lifetime"
)

// BackupFrequency is the minimum spacing of automatic snapshots.
type BackupFrequency string

const (
	FrequencyDaily   BackupFrequency = "daily"
	FrequencyWeekly  BackupFrequency = "weekly"
	FrequencyMonthly BackupFrequency = "monthly"
)

// Interval returns the minimum time between two snapshots.
func (f BackupFrequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ValidGenders are the allowed gender values.
var ValidGenders = map[Gender]bool{
	GenderMale:        true,
	GenderFemale:      true,
	GenderDiverse:     true,
	GenderUnspecified: true,
}

// ValidDiets are the allowed dietary preferences.
var ValidDiets = map[DietaryPreference]bool{
	DietVegetarian:  true,
	DietVegan:       true,
	DietGlutenFree:  true,
	DietLactoseFree: true,
	DietOther:       true,
}

// ValidLevels are the allowed activity and stress levels.
var ValidLevels = map[Level]bool{
	LevelLow:    true,
	LevelMedium: true,
	LevelHigh:   true,
}

var ValidSmoking = map[SmokingStatus]bool{
	SmokingNever:      true,
	SmokingFormer:     true,
	SmokingOccasional: true,
	SmokingRegular:    true,
}

var ValidAlcohol = map[AlcoholConsumption]bool{
	AlcoholNever:    true,
	AlcoholRarely:   true,
	AlcoholModerate: true,
	AlcoholFrequent: true,
}

var ValidSleep = map[SleepQuality]bool{
	SleepPoor:     true,
	SleepFair:     true,
	SleepGood:     true,
	SleepVeryGood: true,
}

// ValidCategories are the allowed symptom categories.
var ValidCategories = map[SymptomCategory]bool{
	CategorySkin:        true,
	CategoryGastro:      true,
	CategoryRespiratory: true,
	CategoryGeneral:     true,
}

// ValidSeverities are the allowed symptom severities.
var ValidSeverities = map[Severity]bool{
	SeverityMild:     true,
	SeverityModerate: true,
	SeveritySevere:   true,
}

var ValidSubscriptions = map[SubscriptionType]bool{
	SubscriptionMonthly:  true,
	SubscriptionYearly:   true,
	SubscriptionLifetime: true,
}

var ValidFrequencies = map[BackupFrequency]bool{
	FrequencyDaily:   true,
	FrequencyWeekly:  true,
	FrequencyMonthly: true,
}

// Package store provides the diary's key-value persistence: a SQLite backend
// and the adapter every other package reads and writes through.
package store

import (
	"context"
	"errors"
)

// Keys of the persisted namespace. Values are JSON documents.
const (
	KeyFoodEntries    = "ALLERGYCARE_FOOD_LOGS"
	KeySymptomEntries = "ALLERGYCARE_SYMPTOM_LOGS"
	KeyUserProfiles   = "ALLERGYCARE_USER_PROFILES"
	KeyAppSettings    = "ALLERGYCARE_APP_SETTINGS"
	KeyPremiumStatus  = "ALLERGYCARE_PREMIUM_STATUS"
	KeyUsageLimits    = "ALLERGYCARE_USAGE_LIMITS"
	KeyDailyUsage     = "ALLERGYCARE_DAILY_USAGE"
	KeyAutoBackups    = "ALLERGYCARE_AUTO_BACKUP"
	KeyBackupSettings = "ALLERGYCARE_BACKUP_SETTINGS"
	KeyAISuggestions  = "ALLERGYCARE_AI_SUGGESTIONS"
	KeyLastActivity   = "ALLERGYCARE_LAST_ACTIVITY"
)

// ErrUnavailable is returned by multi-key writes when no backend is attached.
var ErrUnavailable = errors.New("storage unavailable")

// Backend is the raw key-value persistence the Adapter sits on.
type Backend interface {
	// Get returns the stored text for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetMany stores all values in a single transaction.
	SetMany(ctx context.Context, values map[string]string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Package config loads allergy-diary settings from a YAML file, environment
// variables and defaults.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Backup  BackupConfig  `yaml:"backup"`
	Quota   QuotaConfig   `yaml:"quota"`
	Premium PremiumConfig `yaml:"premium"`
	LLM     LLMConfig     `yaml:"llm"`
}

// StorageConfig locates the SQLite file. An empty Path means
// ~/.allergy-diary/diary.db.
type StorageConfig struct {
	Path string `yaml:"path" env:"ALLERGY_DIARY_DB"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"warn"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// BackupConfig holds the auto-backup scheduler settings.
type BackupConfig struct {
	Debounce time.Duration `yaml:"debounce" env:"BACKUP_DEBOUNCE" env-default:"5s"`
}

// QuotaConfig holds daily-quota settings. Timezone decides when the day rolls
// over; "Local" uses the machine's zone.
type QuotaConfig struct {
	Timezone string `yaml:"timezone" env:"QUOTA_TIMEZONE" env-default:"Local"`
}

// PremiumConfig holds premium-state settings.
type PremiumConfig struct {
	EnforceExpiry bool `yaml:"enforce_expiry" env:"PREMIUM_ENFORCE_EXPIRY" env-default:"true"`
}

// LLMConfig selects the model used for analysis. An empty Provider disables
// analysis.
type LLMConfig struct {
	Provider      string        `yaml:"provider"       env:"LLM_PROVIDER"`
	BaseURL       string        `yaml:"base_url"       env:"LLM_BASE_URL"`
	APIKey        string        `yaml:"api_key"        env:"LLM_API_KEY"`
	Models        []string      `yaml:"models"         env:"LLM_MODELS" env-separator:","`
	Timeout       time.Duration `yaml:"timeout"        env:"LLM_TIMEOUT"        env-default:"30s"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"LLM_MAX_CONCURRENT" env-default:"3"`
}

// DBPath returns the configured database path or the default one.
func (c StorageConfig) DBPath() string {
	if c.Path != "" {
		return c.Path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".allergy-diary", "diary.db")
}

// Location resolves Timezone. Validate guarantees it succeeds.
func (c QuotaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	if c.Backup.Debounce <= 0 {
		return fmt.Errorf("backup.debounce must be > 0 (got %v)", c.Backup.Debounce)
	}

	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}

	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	return nil
}

func (l *LLMConfig) validate() error {
	switch l.Provider {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("provider must be ollama, openai or empty (got %q)", l.Provider)
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", l.Timeout)
	}
	if l.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1 (got %d)", l.MaxConcurrent)
	}
	return nil
}

package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/netfile/campaign-sync/internal/api"
)

// InvalidSetting represents a setting with an unusable value
type InvalidSetting struct {
	Key    string
	Value  any
	Reason string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Missing          []string
	Invalid          []InvalidSetting
	DuplicateTargets []string
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Invalid) > 0 || len(e.DuplicateTargets) > 0
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.Missing) > 0 {
		sb.WriteString("\nMissing settings:\n")
		for _, m := range e.Missing {
			sb.WriteString(fmt.Sprintf("  - %s\n", m))
		}
	}

	if len(e.Invalid) > 0 {
		sb.WriteString("\nInvalid settings:\n")
		for _, s := range e.Invalid {
			sb.WriteString(fmt.Sprintf("  - %s=%v (%s)\n", s.Key, s.Value, s.Reason))
		}
	}

	if len(e.DuplicateTargets) > 0 {
		sb.WriteString("\nDuplicate targets:\n")
		for _, d := range e.DuplicateTargets {
			sb.WriteString(fmt.Sprintf("  - %s\n", d))
		}
	}

	return sb.String()
}

func (e *ValidationErrors) invalid(key string, value any, reason string) {
	e.Invalid = append(e.Invalid, InvalidSetting{Key: key, Value: value, Reason: reason})
}

var validPriorities = map[string]bool{
	"min": true, "low": true, "default": true, "high": true, "urgent": true,
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.API.APIKey == "" {
		errs.Missing = append(errs.Missing, fmt.Sprintf("api.api_key (set %s_API_KEY env var)", EnvPrefix))
	}
	if c.API.APIPassword == "" {
		errs.Missing = append(errs.Missing, fmt.Sprintf("api.api_password (set %s_API_PASSWORD env var)", EnvPrefix))
	}
	if c.API.BaseURL == "" {
		errs.Missing = append(errs.Missing, "api.base_url")
	}

	profile, err := api.LookupProfile(c.API.Profile)
	if err != nil {
		errs.invalid("api.profile", c.API.Profile, "valid: "+strings.Join(api.ProfileNames(), ", "))
	}
	if c.API.TimeoutSec < 1 {
		errs.invalid("api.timeout_sec", c.API.TimeoutSec, "must be >= 1")
	}
	if c.API.RatePerSecond < 0 {
		errs.invalid("api.rate_per_second", c.API.RatePerSecond, "must be >= 0")
	}

	if c.Sync.Workers < 1 {
		errs.invalid("sync.workers", c.Sync.Workers, "must be >= 1")
	}
	if c.Sync.MaxRounds < 0 {
		errs.invalid("sync.max_rounds", c.Sync.MaxRounds, "must be >= 0")
	}

	names := make(map[string]bool)
	keys := make(map[string]bool)
	for i, t := range c.Targets {
		prefix := fmt.Sprintf("targets[%d]", i)
		if t.Name == "" {
			errs.Missing = append(errs.Missing, prefix+".name")
		} else if names[t.Name] {
			errs.DuplicateTargets = append(errs.DuplicateTargets, "name "+t.Name)
		}
		names[t.Name] = true

		if keys[t.StoreKey] {
			errs.DuplicateTargets = append(errs.DuplicateTargets, "store_key "+t.StoreKey)
		}
		keys[t.StoreKey] = true

		if profile.Capabilities.DomainScoped && t.Domain == "" {
			errs.Missing = append(errs.Missing, prefix+".domain (required by profile "+profile.Name+")")
		}
		if len(t.Topics) == 0 {
			errs.Missing = append(errs.Missing, prefix+".topics")
		}
		if t.PageSize < 1 {
			errs.invalid(prefix+".page_size", t.PageSize, "must be >= 1")
		}
		if t.RangeLimit < 0 {
			errs.invalid(prefix+".range_limit", t.RangeLimit, "must be >= 0")
		}
	}

	switch c.Store.Driver {
	case "file", "sqlite":
	default:
		errs.invalid("store.driver", c.Store.Driver, "valid: file, sqlite")
	}
	if c.Store.Path == "" {
		errs.Missing = append(errs.Missing, "store.path")
	}

	if c.Archive.Enabled && c.Archive.Directory == "" {
		errs.Missing = append(errs.Missing, "archive.directory")
	}
	if c.Archive.CompressionLevel < -2 || c.Archive.CompressionLevel > 9 {
		errs.invalid("archive.compression_level", c.Archive.CompressionLevel, "must be between -2 and 9")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs.invalid("logging.level", c.Logging.Level, "valid: debug, info, warn, error")
	}

	if c.Daemon.Interval <= 0 {
		errs.invalid("daemon.interval", c.Daemon.Interval, "must be positive")
	}

	if c.Notify.Enabled {
		if c.Notify.Topic == "" {
			errs.Missing = append(errs.Missing, "notify.topic (required when notify.enabled=true)")
		}
		if !validPriorities[c.Notify.Priority] {
			errs.invalid("notify.priority", c.Notify.Priority, "valid: min, low, default, high, urgent")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := &Config{
		API: APIConfig{
			BaseURL:     "https://example.com/api",
			APIKey:      "key",
			APIPassword: "pw",
			Profile:     "filing-v101",
			TimeoutSec:  30,
		},
		Sync:    SyncConfig{PageSize: 1000, RangeLimit: 10000, Workers: 1, Topics: DefaultTopics},
		Store:   StoreConfig{Driver: "file", Path: "config.json", Env: "preview"},
		Logging: LoggingConfig{Level: "info"},
		Daemon:  DaemonConfig{Interval: time.Hour},
	}
	cfg.applyTargetDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.API.APIKey = ""
	cfg.API.Profile = "v999"
	cfg.Store.Driver = "postgres"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verrs.Missing) != 1 {
		t.Errorf("expected 1 missing setting, got %v", verrs.Missing)
	}
	if len(verrs.Invalid) != 3 {
		t.Errorf("expected 3 invalid settings, got %v", verrs.Invalid)
	}

	msg := err.Error()
	for _, want := range []string{"api.api_key", "api.profile=v999", "store.driver=postgres", "logging.level=loud"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q, got: %s", want, msg)
		}
	}
}

func TestValidate_DomainRequiredByProfile(t *testing.T) {
	cfg := validConfig()
	cfg.Targets[0].Domain = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "targets[0].domain") {
		t.Errorf("expected missing domain error, got: %v", err)
	}

	cfg.API.Profile = "cal-v101"
	if err := cfg.Validate(); err != nil {
		t.Errorf("cal-v101 routes need no domain, got: %v", err)
	}
}

func TestValidate_DuplicateTargets(t *testing.T) {
	cfg := validConfig()
	cfg.Targets = append(cfg.Targets, cfg.Targets[0])

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected duplicate target error")
	}
	if !strings.Contains(err.Error(), "name cal") || !strings.Contains(err.Error(), "store_key CAL_SUBSCRIPTION_ID") {
		t.Errorf("error should list duplicate name and key, got: %v", err)
	}
}

func TestValidate_Notify(t *testing.T) {
	cfg := validConfig()
	cfg.Notify = NotifyConfig{Enabled: true, Priority: "loud"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected notify validation error")
	}
	if !strings.Contains(err.Error(), "notify.topic") || !strings.Contains(err.Error(), "notify.priority=loud") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_PageSize(t *testing.T) {
	cfg := validConfig()
	cfg.Targets[0].PageSize = 0

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "targets[0].page_size=0") {
		t.Errorf("expected page size error, got: %v", err)
	}
}

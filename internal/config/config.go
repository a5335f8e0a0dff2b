package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/netfile/campaign-sync/internal/api"
)

type Config struct {
	API     APIConfig      `mapstructure:"api"`
	Sync    SyncConfig     `mapstructure:"sync"`
	Targets []TargetConfig `mapstructure:"targets"`
	Store   StoreConfig    `mapstructure:"store"`
	Archive ArchiveConfig  `mapstructure:"archive"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Daemon  DaemonConfig   `mapstructure:"daemon"`
	Notify  NotifyConfig   `mapstructure:"notify"`
}

type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	APIPassword   string `mapstructure:"api_password"`
	Profile       string `mapstructure:"profile"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
	AgencyParam   string `mapstructure:"agency_param"`
}

type SyncConfig struct {
	PageSize   int      `mapstructure:"page_size"`
	RangeLimit int      `mapstructure:"range_limit"`
	MaxRounds  int      `mapstructure:"max_rounds"`
	Workers    int      `mapstructure:"workers"`
	Topics     []string `mapstructure:"topics"`
}

// TargetConfig is one domain/agency pair to synchronize. Zero values
// inherit from SyncConfig.
type TargetConfig struct {
	Name                  string   `mapstructure:"name"`
	Domain                string   `mapstructure:"domain"`
	AgencyID              string   `mapstructure:"agency_id"`
	FeedName              string   `mapstructure:"feed_name"`
	SubscriptionName      string   `mapstructure:"subscription_name"`
	StoreKey              string   `mapstructure:"store_key"`
	Topics                []string `mapstructure:"topics"`
	ElementClassification string   `mapstructure:"element_classification"`
	SpecificationOrg      string   `mapstructure:"specification_org"`
	PageSize              int      `mapstructure:"page_size"`
	RangeLimit            int      `mapstructure:"range_limit"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Env    string `mapstructure:"env"`
}

type ArchiveConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Directory        string `mapstructure:"directory"`
	CompressionLevel int    `mapstructure:"compression_level"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

type DaemonConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	BusinessDaysOnly bool          `mapstructure:"business_days_only"`
	Timezone         string        `mapstructure:"timezone"`
	StateFile        string        `mapstructure:"state_file"`
	RunOnStartup     bool          `mapstructure:"run_on_startup"`
	ListenAddr       string        `mapstructure:"listen_addr"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

// DefaultTopics are synchronized when neither the target nor the sync
// section lists topics.
var DefaultTopics = []string{
	"filing-activities",
	"element-activities",
	"transaction-activities",
	"unitemized-transaction-activities",
}

const EnvPrefix = "CAMPAIGN_SYNC"

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("api.base_url", "https://netfile.com/filing/api")
	v.SetDefault("api.profile", api.DefaultProfile)
	v.SetDefault("api.timeout_sec", 120)
	v.SetDefault("api.rate_per_second", 5)
	v.SetDefault("api.agency_param", "aid")
	v.SetDefault("sync.page_size", 1000)
	v.SetDefault("sync.range_limit", 10000)
	v.SetDefault("sync.max_rounds", 0)
	v.SetDefault("sync.workers", 1)
	v.SetDefault("sync.topics", DefaultTopics)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "resources/config.json")
	v.SetDefault("store.env", "preview")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.directory", "data")
	v.SetDefault("archive.compression_level", 0)
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("daemon.interval", "1h")
	v.SetDefault("daemon.business_days_only", false)
	v.SetDefault("daemon.timezone", "America/Los_Angeles")
	v.SetDefault("daemon.state_file", "data/.daemon-state")
	v.SetDefault("daemon.run_on_startup", true)
	v.SetDefault("daemon.listen_addr", ":9090")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "inbox_tray")

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("api.api_key", EnvPrefix+"_API_KEY")
	_ = v.BindEnv("api.api_password", EnvPrefix+"_API_PASSWORD")
	_ = v.BindEnv("notify.token", EnvPrefix+"_NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyTargetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultTarget is used when no targets are configured.
func DefaultTarget() TargetConfig {
	return TargetConfig{
		Name:             "cal",
		Domain:           "cal",
		FeedName:         "cal_v101",
		SubscriptionName: "My Campaign API Feed",
	}
}

func (c *Config) applyTargetDefaults() {
	if len(c.Targets) == 0 {
		c.Targets = []TargetConfig{DefaultTarget()}
	}
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.Name == "" {
			t.Name = t.Domain
		}
		if t.SubscriptionName == "" {
			t.SubscriptionName = "My Campaign API Feed"
		}
		if t.StoreKey == "" {
			t.StoreKey = StoreKey(t.Name)
		}
		if len(t.Topics) == 0 {
			t.Topics = c.Sync.Topics
		}
		if t.PageSize == 0 {
			t.PageSize = c.Sync.PageSize
		}
		if t.RangeLimit == 0 {
			t.RangeLimit = c.Sync.RangeLimit
		}
	}
}

// StoreKey derives the persisted id key for a target name, e.g.
// "cal" -> "CAL_SUBSCRIPTION_ID".
func StoreKey(name string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(name))
	return key + "_SUBSCRIPTION_ID"
}

// Target returns the named target.
func (c *Config) Target(name string) (TargetConfig, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// Timeout returns the API request timeout.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FlatPull/pkg/util"
)

type AssetConfig struct {
	Enabled bool     `yaml:"enabled"`
	Tickers []string `yaml:"tickers"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	DataDir     string `yaml:"data_dir" default:"." validate:"required"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"log"`

	Retrieval struct {
		Start     string `yaml:"start" validate:"required,datetime=2006-01-02"`
		End       string `yaml:"end" validate:"required,datetime=2006-01-02"`
		Normalize bool   `yaml:"normalize" default:"true"`
		Progress  bool   `yaml:"progress" default:"true"`
		Assets    struct {
			Stocks  AssetConfig `yaml:"stocks"`
			Options AssetConfig `yaml:"options"`
			Crypto  AssetConfig `yaml:"crypto"`
			Forex   AssetConfig `yaml:"forex"`
		} `yaml:"assets"`
	} `yaml:"retrieval"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts" default:"100" validate:"min=1"`
		MinDelay    time.Duration `yaml:"min_delay" default:"1s" validate:"gt=0"`
		MaxDelay    time.Duration `yaml:"max_delay" default:"600s" validate:"gtefield=MinDelay"`
		Multiplier  float64       `yaml:"multiplier" default:"2" validate:"gte=1"`
		Jitter      float64       `yaml:"jitter" default:"0.1" validate:"gte=0,lt=1"`
	} `yaml:"retry"`

	FlatFiles struct {
		Endpoint        string        `yaml:"endpoint" default:"https://files.massive.com" validate:"required,url"`
		Bucket          string        `yaml:"bucket" default:"flatfiles" validate:"required"`
		Region          string        `yaml:"region" default:"us-east-1"`
		AccessKeyID     string        `yaml:"access_key_id"`
		SecretAccessKey string        `yaml:"secret_access_key"`
		Timeout         time.Duration `yaml:"timeout" default:"10m"`
	} `yaml:"flatfiles"`

	REST struct {
		BaseURL   string        `yaml:"base_url" default:"https://api.massive.com" validate:"required,url"`
		APIKey    string        `yaml:"api_key"`
		RateLimit float64       `yaml:"rate_limit" default:"5" validate:"gt=0"`
		Burst     int           `yaml:"burst" default:"1" validate:"min=1"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		PageLimit int           `yaml:"page_limit" default:"50000" validate:"min=1,max=50000"`
	} `yaml:"rest"`

	Aggregates struct {
		Enabled    bool   `yaml:"enabled"`
		Timespan   string `yaml:"timespan" default:"minute" validate:"oneof=second minute hour day"`
		Multiplier int    `yaml:"multiplier" default:"1" validate:"min=1"`
	} `yaml:"aggregates"`

	FingerprintCache struct {
		Backend string        `yaml:"backend" default:"none" validate:"oneof=none redis"`
		TTL     time.Duration `yaml:"ttl" default:"720h"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"flatpull"`
		} `yaml:"redis"`
	} `yaml:"fingerprint_cache"`

	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"9108" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	} `yaml:"server"`

	Events struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"flatpull.days"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"events"`

	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"flatpull"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Override adjusts a loaded configuration before it is validated.
type Override func(*Config) error

// LoadWithEnv loads .env (once), then the YAML file, then applies environment
// overrides and finally the given overrides, in order.
func LoadWithEnv(path string, overrides ...Override) (*Config, error) {
	LoadDotenvOnce()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := parse(b)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv(os.Getenv)
	for _, o := range overrides {
		if err := o(c); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides credentials and run parameters from the environment.
// The flat-file secret falls back to the API key, which is what the provider issues by default.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("MASSIVE_API_KEY"); v != "" {
		c.REST.APIKey = v
	}
	if v := getenv("MASSIVE_AWS_ACCESS_KEY_ID"); v != "" {
		c.FlatFiles.AccessKeyID = v
	}
	if v := getenv("MASSIVE_AWS_SECRET_ACCESS_KEY"); v != "" {
		c.FlatFiles.SecretAccessKey = v
	}
	if c.FlatFiles.SecretAccessKey == "" {
		c.FlatFiles.SecretAccessKey = c.REST.APIKey
	}
	if v := getenv("FLATPULL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("FLATPULL_START"); v != "" {
		c.Retrieval.Start = v
	}
	if v := getenv("FLATPULL_END"); v != "" {
		c.Retrieval.End = v
	}
	if v := getenv("FLATPULL_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("FLATPULL_EVENTS_BROKERS"); v != "" {
		c.Events.Brokers = util.SplitList(v, false)
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	start, end, err := c.Range()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("retrieval.end %s is before retrieval.start %s", c.Retrieval.End, c.Retrieval.Start)
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events are enabled")
	}
	return nil
}

// Range returns the parsed [start, end) retrieval window.
func (c *Config) Range() (time.Time, time.Time, error) {
	start, err := util.ParseDay(c.Retrieval.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("retrieval.start: %w", err)
	}
	end, err := util.ParseDay(c.Retrieval.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("retrieval.end: %w", err)
	}
	return start, end, nil
}

// EnableOnly turns on the listed assets and turns off the others.
func (c *Config) EnableOnly(assets []string) error {
	set := map[string]*AssetConfig{
		"stocks":  &c.Retrieval.Assets.Stocks,
		"options": &c.Retrieval.Assets.Options,
		"crypto":  &c.Retrieval.Assets.Crypto,
		"forex":   &c.Retrieval.Assets.Forex,
	}
	for _, a := range set {
		a.Enabled = false
	}
	for _, name := range assets {
		a, ok := set[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown asset type %q", name)
		}
		a.Enabled = true
	}
	return nil
}

package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "STEELLOOP_CONFIG"
	databasePathEnv  = "STEELLOOP_DATABASE_PATH"
	logLevelEnv      = "STEELLOOP_LOG_LEVEL"
	generatorKeyEnv  = "GENERATOR_API_KEY"
	generatorModel   = "GENERATOR_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	driveTokenURLEnv = "CLOUD_DRIVE_TOKEN_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Generator    GeneratorConfig    `yaml:"generator"`
	CloudDrive   CloudDriveConfig   `yaml:"cloudDrive"`
	Publisher    PublisherConfig    `yaml:"publisher"`
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects level and handler format (text, json or empty for auto).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OrchestratorConfig tunes job execution.
type OrchestratorConfig struct {
	StepAttempts int           `yaml:"stepAttempts"`
	BaseDelay    time.Duration `yaml:"baseDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"pollInterval"`
	StaleAfter   time.Duration `yaml:"staleAfter"`
}

// SchedulerConfig defines how often the sweeper runs.
type SchedulerConfig struct {
	SweepInterval time.Duration  `yaml:"sweepInterval"`
	Timezone      string         `yaml:"timezone"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GeneratorConfig defines how to contact the generative model API.
type GeneratorConfig struct {
	Endpoint  string          `yaml:"endpoint"`
	Model     string          `yaml:"model"`
	APIKey    string          `yaml:"apiKey"`
	Timeout   time.Duration   `yaml:"timeout"`
	MaxTokens MaxTokensConfig `yaml:"maxTokens"`
}

// MaxTokensConfig caps the output of each stage.
type MaxTokensConfig struct {
	Forensic int `yaml:"forensic"`
	Hooks    int `yaml:"hooks"`
	Drafts   int `yaml:"drafts"`
}

// CloudDriveConfig wires the document storage API and its OAuth refresh.
type CloudDriveConfig struct {
	APIBase       string        `yaml:"apiBase"`
	TokenURL      string        `yaml:"tokenURL"`
	ClientID      string        `yaml:"clientID"`
	ClientSecret  string        `yaml:"clientSecret"`
	RefreshBuffer time.Duration `yaml:"refreshBuffer"`
}

// PublisherConfig wires the Telegram channel publisher.
type PublisherConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
}

// Load reads the file named by STEELLOOP_CONFIG (if set) and applies
// environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile reads YAML configuration from path (if non-empty) over defaults and
// applies environment overrides.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(generatorKeyEnv); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv(generatorModel); v != "" {
		c.Generator.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Publisher.BotToken = v
	}
	if v := os.Getenv(driveTokenURLEnv); v != "" {
		c.CloudDrive.TokenURL = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	o := override.Orchestrator
	if o.StepAttempts > 0 {
		base.Orchestrator.StepAttempts = o.StepAttempts
	}
	if o.BaseDelay > 0 {
		base.Orchestrator.BaseDelay = o.BaseDelay
	}
	if o.MaxDelay > 0 {
		base.Orchestrator.MaxDelay = o.MaxDelay
	}
	if o.Concurrency > 0 {
		base.Orchestrator.Concurrency = o.Concurrency
	}
	if o.PollInterval > 0 {
		base.Orchestrator.PollInterval = o.PollInterval
	}
	if o.StaleAfter > 0 {
		base.Orchestrator.StaleAfter = o.StaleAfter
	}

	if override.Scheduler.SweepInterval > 0 {
		base.Scheduler.SweepInterval = override.Scheduler.SweepInterval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	g := override.Generator
	if g.Endpoint != "" {
		base.Generator.Endpoint = g.Endpoint
	}
	if g.Model != "" {
		base.Generator.Model = g.Model
	}
	if g.APIKey != "" {
		base.Generator.APIKey = g.APIKey
	}
	if g.Timeout > 0 {
		base.Generator.Timeout = g.Timeout
	}
	if g.MaxTokens.Forensic > 0 {
		base.Generator.MaxTokens.Forensic = g.MaxTokens.Forensic
	}
	if g.MaxTokens.Hooks > 0 {
		base.Generator.MaxTokens.Hooks = g.MaxTokens.Hooks
	}
	if g.MaxTokens.Drafts > 0 {
		base.Generator.MaxTokens.Drafts = g.MaxTokens.Drafts
	}

	d := override.CloudDrive
	if d.APIBase != "" {
		base.CloudDrive.APIBase = d.APIBase
	}
	if d.TokenURL != "" {
		base.CloudDrive.TokenURL = d.TokenURL
	}
	if d.ClientID != "" {
		base.CloudDrive.ClientID = d.ClientID
	}
	if d.ClientSecret != "" {
		base.CloudDrive.ClientSecret = d.ClientSecret
	}
	if d.RefreshBuffer > 0 {
		base.CloudDrive.RefreshBuffer = d.RefreshBuffer
	}

	if override.Publisher.APIBase != "" {
		base.Publisher.APIBase = override.Publisher.APIBase
	}
	if override.Publisher.BotToken != "" {
		base.Publisher.BotToken = override.Publisher.BotToken
	}

	return base
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: "data/steelloop.db"},
		Logging:  LoggingConfig{Level: "info"},
		Orchestrator: OrchestratorConfig{
			StepAttempts: 4,
			BaseDelay:    2 * time.Second,
			MaxDelay:     30 * time.Second,
			Concurrency:  4,
			PollInterval: time.Second,
			StaleAfter:   15 * time.Minute,
		},
		Scheduler: SchedulerConfig{SweepInterval: time.Minute, Timezone: defaultTimezone, location: tz},
		Generator: GeneratorConfig{
			Endpoint:  "https://api.openai.com/v1/chat/completions",
			Model:     "gpt-4o-mini",
			Timeout:   2 * time.Minute,
			MaxTokens: MaxTokensConfig{Forensic: 4000, Hooks: 2000, Drafts: 6000},
		},
		CloudDrive: CloudDriveConfig{
			APIBase:       "https://www.googleapis.com/drive/v3",
			TokenURL:      "https://oauth2.googleapis.com/token",
			RefreshBuffer: 5 * time.Minute,
		},
		Publisher: PublisherConfig{APIBase: "https://api.telegram.org"},
	}
}

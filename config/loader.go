package config

import (
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits them.
const (
	DefaultPort           = 16182
	DefaultPollIntervalMS = 60000
	DefaultTimeoutMS      = 15000
	DefaultStuckAfterMS   = 300000
	DefaultBatchLimit     = 20
	DefaultLogLevel       = "info"
)

// Load reads and validates the application configuration from the given
// path. When path is empty the default search locations are tried.
// Environment variables override file values after unmarshalling.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig

	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "./config/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Feed.PollIntervalMS == 0 {
		cfg.Feed.PollIntervalMS = DefaultPollIntervalMS
	}
	if cfg.Feed.TimeoutMS == 0 {
		cfg.Feed.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Publisher.StuckAfterMS == 0 {
		cfg.Publisher.StuckAfterMS = DefaultStuckAfterMS
	}
	if cfg.Publisher.BatchLimit == 0 {
		cfg.Publisher.BatchLimit = DefaultBatchLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// applyEnv overrides file values with environment variables. Secrets in
// particular should come from the environment rather than the file.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("ALERTS_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("ALERTS_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("ALERTS_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ALERTS_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("ALERTS_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("ALERTS_WEBHOOK_URL"); v != "" {
		cfg.Publisher.WebhookURL = v
	}
	if v := os.Getenv("ALERTS_WEBHOOK_TOKEN"); v != "" {
		cfg.Publisher.WebhookToken = v
	}
	if v := os.Getenv("ALERTS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

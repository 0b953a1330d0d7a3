package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port      int    `yaml:"port" validate:"gt=0"`
	AuthToken string `yaml:"authToken"`
}

// FeedConfig contains the GTFS-Realtime alert feed configuration
type FeedConfig struct {
	URL            string `yaml:"url" validate:"omitempty,url"`
	PollIntervalMS int    `yaml:"pollIntervalMS" validate:"gte=0"`
	TimeoutMS      int    `yaml:"timeoutMS" validate:"gte=0"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// PublisherConfig contains publication configuration
type PublisherConfig struct {
	WebhookURL   string `yaml:"webhookURL" validate:"omitempty,url"`
	WebhookToken string `yaml:"webhookToken"`
	Hashtag      string `yaml:"hashtag"`
	StuckAfterMS int    `yaml:"stuckAfterMS" validate:"gte=0"`
	BatchLimit   int    `yaml:"batchLimit" validate:"gte=0"`
	DryRun       bool   `yaml:"dryRun"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server    ServerConfig    `yaml:"server" validate:"required"`
	Feed      FeedConfig      `yaml:"feed"`
	Database  DatabaseConfig  `yaml:"database" validate:"required"`
	Publisher PublisherConfig `yaml:"publisher"`
	Log       LogConfig       `yaml:"log"`
}

package core

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Database struct {
	Type             string `yaml:"type" env:"DATABASE_TYPE"`
	ConnectionString string `yaml:"connectionString" env:"DATABASE_URL"`
}

type Session struct {
	// Secret signs the session cookie value; override it in any real deployment.
	Secret    string        `yaml:"secret" env:"SERVER_SECRET_KEY"`
	RedisAddr string        `yaml:"redisAddr" env:"SESSION_REDIS_ADDR"`
	TTL       time.Duration `yaml:"ttl" env:"SESSION_TTL"`
}

type ServiceConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	Database       Database `yaml:"database"`
	UploadDir      string   `yaml:"uploadDir" env:"UPLOAD_FOLDER"`
	DeviceAPIKey   string   `yaml:"deviceApiKey" env:"DEVICE_API_KEY"`
	Session        Session  `yaml:"session"`
	ThumbnailWidth int      `yaml:"thumbnailWidth" env:"THUMBNAIL_WIDTH"`
}

// LoadConfig loads configuration from the specified YAML file and then applies
// environment variable overrides on top of it.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	// Environment wins over file values
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *ServiceConfig) {
	if config.Port == 0 {
		config.Port = 5001
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Database.ConnectionString == "" {
		config.Database.ConnectionString = "server.db"
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if config.Session.TTL == 0 {
		config.Session.TTL = 30 * 24 * time.Hour
	}
	if config.Session.RedisAddr == "" {
		config.Session.RedisAddr = "localhost:6379"
	}
	if config.ThumbnailWidth == 0 {
		config.ThumbnailWidth = 320
	}
}

func validateConfig(config *ServiceConfig) error {
	if config.DeviceAPIKey == "" {
		return fmt.Errorf("deviceApiKey must be set")
	}
	if config.Session.Secret == "" {
		return fmt.Errorf("session secret must be set")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	return nil
}

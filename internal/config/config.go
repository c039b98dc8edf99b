package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Engine     EngineConfig     `yaml:"engine"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// ServerConfig holds HTTP server configuration. The write timeout is long
// because a download request blocks until the engine finishes.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8574"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"20m"`
}

// StorageConfig holds filesystem storage configuration.
type StorageConfig struct {
	BasePath    string `yaml:"base_path" envconfig:"STORAGE_PATH" default:"/data/videos"`
	TempPath    string `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH" default:"/data/temp"`
	HistoryPath string `yaml:"history_path" envconfig:"STORAGE_HISTORY_PATH"`
}

// EngineConfig holds external engine configuration.
type EngineConfig struct {
	YtDlpPath       string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH" default:"yt-dlp"`
	FfmpegPath      string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"10m"`
}

// ClassifierConfig holds error classifier configuration.
type ClassifierConfig struct {
	// RulesPath points at an optional YAML signature table that replaces the
	// built-in rules, so the table can track the engine's error vocabulary
	// without touching orchestration code.
	RulesPath string `yaml:"rules_path" envconfig:"CLASSIFIER_RULES_PATH"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Storage.TempPath == "" {
		return fmt.Errorf("STORAGE_TEMP_PATH is required")
	}
	if c.Engine.YtDlpPath == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}
	if c.Engine.DownloadTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_TIMEOUT must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HistoryDBPath returns the SQLite path for the download history, defaulting
// to a file inside the storage base path.
func (c *StorageConfig) HistoryDBPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(c.BasePath, "downloads.db")
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackzampolin/pantry/internal/ingest"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

// Config holds pantry configuration.
// Stored at: ~/.pantry/config.yaml
type Config struct {
	// ServerURL is the base URL of the cookbook Resource API.
	ServerURL string          `mapstructure:"server_url" yaml:"server_url"`
	Poll      PollConfig      `mapstructure:"poll" yaml:"poll"`
	Upload    UploadConfig    `mapstructure:"upload" yaml:"upload"`
	DevServer DevServerConfig `mapstructure:"devserver" yaml:"devserver"`
}

// PollConfig tunes OCR status polling.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"` // 0 = unbounded
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`           // 0 = unbounded
}

// UploadConfig limits what the wizard stages for upload.
type UploadConfig struct {
	MaxFiles int `mapstructure:"max_files" yaml:"max_files"`
}

// DevServerConfig configures the local development Resource API.
type DevServerConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      string        `mapstructure:"port" yaml:"port"`
	PageDelay time.Duration `mapstructure:"page_delay" yaml:"page_delay"`
	// Fixtures is a YAML file of scripted OCR results. Empty uses the built-in set.
	Fixtures string `mapstructure:"fixtures" yaml:"fixtures"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8080",
		Poll: PollConfig{
			Interval: ocrjob.DefaultInterval,
			Timeout:  ocrjob.DefaultTimeout,
		},
		Upload: UploadConfig{
			MaxFiles: ingest.DefaultMaxFiles,
		},
		DevServer: DevServerConfig{
			Host:      "127.0.0.1",
			Port:      "8080",
			PageDelay: time.Second,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q is not an absolute URL", c.ServerURL)
	}
	if c.Poll.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if c.Poll.MaxAttempts < 0 {
		return errors.New("poll.max_attempts cannot be negative")
	}
	if c.Poll.Timeout < 0 {
		return errors.New("poll.timeout cannot be negative")
	}
	if c.Upload.MaxFiles <= 0 {
		return errors.New("upload.max_files must be positive")
	}
	if c.DevServer.PageDelay < 0 {
		return errors.New("devserver.page_delay cannot be negative")
	}
	return nil
}

// PollerConfig builds the poller settings for a status source.
func (c *Config) PollerConfig(api ocrjob.StatusAPI, logger *slog.Logger) ocrjob.PollerConfig {
	return ocrjob.PollerConfig{
		API:         api,
		Interval:    c.Poll.Interval,
		MaxAttempts: c.Poll.MaxAttempts,
		Timeout:     c.Poll.Timeout,
		Logger:      logger,
	}
}

// IngestOptions builds the staging options.
func (c *Config) IngestOptions(logger *slog.Logger) ingest.Options {
	return ingest.Options{MaxFiles: c.Upload.MaxFiles, Logger: logger}
}

// Package config provides configuration management for vodarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultMaxConcurrent      = 2
	defaultSegmentDuration    = 2 * time.Second
	defaultAutoSaveInterval   = 30 * time.Second
	defaultProbeTimeout       = 30 * time.Second
	defaultSubtitleTimeout    = 120 * time.Second
	defaultWatcherSettle      = 2 * time.Second
	defaultResumeSettleDelay  = 5 * time.Second
	defaultWatcherStartDelay  = 10 * time.Second
	defaultDiskUsageInterval  = 10 * time.Minute
	defaultCompletedRetention = 100
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn" masq:"secret"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds the media tree locations.
type StorageConfig struct {
	// MoviesDir is the root of the film library. Scanned recursively.
	MoviesDir string `mapstructure:"movies_dir"`
	// SeriesDir is the root of the episode library. May be absent on disk.
	SeriesDir string `mapstructure:"series_dir"`
	// TranscodedDir is the root of the published HLS assets. A single
	// process owns this tree.
	TranscodedDir string `mapstructure:"transcoded_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// TranscodeConfig holds the pre-transcoding engine configuration.
type TranscodeConfig struct {
	// MaxConcurrent is the number of simultaneous transcode workers.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// SegmentDuration is the nominal HLS segment length.
	SegmentDuration time.Duration `mapstructure:"segment_duration"`
	// AutoSaveInterval is how often the queue state file is flushed.
	AutoSaveInterval time.Duration `mapstructure:"auto_save_interval"`
	// AutoStart resumes the queue on boot when pending work exists.
	AutoStart bool `mapstructure:"auto_start"`
	// ProbeTimeout bounds individual ffprobe invocations.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// SubtitleTimeout bounds subtitle extraction passes.
	SubtitleTimeout time.Duration `mapstructure:"subtitle_timeout"`
	// ResumeSettleDelay is how long boot waits before auto-resuming.
	ResumeSettleDelay time.Duration `mapstructure:"resume_settle_delay"`
	// WatcherStartDelay is how long boot waits before starting the watcher.
	WatcherStartDelay time.Duration `mapstructure:"watcher_start_delay"`
	// DiskUsageInterval is how often the cached disk-usage string refreshes.
	DiskUsageInterval time.Duration `mapstructure:"disk_usage_interval"`
	// CompletedRetention bounds the completed-job history.
	CompletedRetention int `mapstructure:"completed_retention"`
}

// ScannerConfig holds library scanning configuration.
type ScannerConfig struct {
	// WatcherEnabled starts the filesystem watcher after boot.
	WatcherEnabled bool `mapstructure:"watcher_enabled"`
	// WatcherSettle is how long a new file must be quiet before enqueue.
	WatcherSettle time.Duration `mapstructure:"watcher_settle"`
	// Schedule is an optional 6-field cron expression for periodic
	// rescans. Empty disables the schedule.
	Schedule string `mapstructure:"schedule"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VODARR_ and use underscores for
// nesting. Example: VODARR_STORAGE_TRANSCODED_DIR=/data/transcoded.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vodarr")
		v.AddConfigPath("$HOME/.vodarr")
	}

	v.SetEnvPrefix("VODARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file so defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vodarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.movies_dir", "./media/movies")
	v.SetDefault("storage.series_dir", "./media/series")
	v.SetDefault("storage.transcoded_dir", "./media/transcoded")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Transcode defaults
	v.SetDefault("transcode.max_concurrent", defaultMaxConcurrent)
	v.SetDefault("transcode.segment_duration", defaultSegmentDuration)
	v.SetDefault("transcode.auto_save_interval", defaultAutoSaveInterval)
	v.SetDefault("transcode.auto_start", true)
	v.SetDefault("transcode.probe_timeout", defaultProbeTimeout)
	v.SetDefault("transcode.subtitle_timeout", defaultSubtitleTimeout)
	v.SetDefault("transcode.resume_settle_delay", defaultResumeSettleDelay)
	v.SetDefault("transcode.watcher_start_delay", defaultWatcherStartDelay)
	v.SetDefault("transcode.disk_usage_interval", defaultDiskUsageInterval)
	v.SetDefault("transcode.completed_retention", defaultCompletedRetention)

	// Scanner defaults
	v.SetDefault("scanner.watcher_enabled", true)
	v.SetDefault("scanner.watcher_settle", defaultWatcherSettle)
	v.SetDefault("scanner.schedule", "")

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Storage.TranscodedDir == "" {
		return fmt.Errorf("storage.transcoded_dir is required")
	}
	if c.Storage.MoviesDir == "" {
		return fmt.Errorf("storage.movies_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Transcode.MaxConcurrent < 1 {
		return fmt.Errorf("transcode.max_concurrent must be at least 1")
	}
	if c.Transcode.SegmentDuration < time.Second {
		return fmt.Errorf("transcode.segment_duration must be at least 1s")
	}
	if c.Transcode.CompletedRetention < 1 {
		return fmt.Errorf("transcode.completed_retention must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StateFilePath returns the location of the persisted queue state document.
func (c *StorageConfig) StateFilePath() string {
	return filepath.Join(c.TranscodedDir, "queue-state.json")
}

// SeriesOutputDir returns the subdirectory of the transcoded tree that
// holds episode assets.
func (c *StorageConfig) SeriesOutputDir() string {
	return filepath.Join(c.TranscodedDir, "series")
}

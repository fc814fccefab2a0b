package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Download   DownloadConfig   `mapstructure:"download"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Strategies StrategiesConfig `mapstructure:"strategies"`
	Mega       MegaConfig       `mapstructure:"mega"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP API configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	DestDir          string        `mapstructure:"dest_dir"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// RetryConfig bounds the per-strategy retry budget
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ToolsConfig locates external download binaries. Paths here are explicit
// orchestrator-scoped configuration, never a process-wide cache.
type ToolsConfig struct {
	MegadlBinary string        `mapstructure:"megadl_binary"`
	YTDLPBinary  string        `mapstructure:"ytdlp_binary"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StrategiesConfig fixes the candidate order per service variant. Strategy
// kinds are named by their StrategyKind strings.
type StrategiesConfig struct {
	Mega        []string `mapstructure:"mega"`
	Video       []string `mapstructure:"video"`
	MediaFire   []string `mapstructure:"mediafire"`
	GoogleDrive []string `mapstructure:"gdrive"`
	Unknown     []string `mapstructure:"unknown"`
}

// Order returns the configured candidate order for a variant
func (s StrategiesConfig) Order(variant ServiceVariant) []string {
	switch variant {
	case VariantMega:
		return s.Mega
	case VariantVideo:
		return s.Video
	case VariantMediaFire:
		return s.MediaFire
	case VariantGoogleDrive:
		return s.GoogleDrive
	default:
		return s.Unknown
	}
}

// MegaConfig contains Mega.nz protocol settings
type MegaConfig struct {
	APIEndpoint string        `mapstructure:"api_endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HistoryConfig contains download history persistence settings
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			DestDir:          "~/Downloads/obidl",
			ProgressInterval: 500 * time.Millisecond,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
		},
		Tools: ToolsConfig{
			MegadlBinary: "megadl",
			YTDLPBinary:  "yt-dlp",
			Timeout:      30 * time.Minute,
		},
		Strategies: StrategiesConfig{
			Mega:        []string{string(KindExternalTool), string(KindProtocolClient)},
			Video:       []string{string(KindExternalTool)},
			MediaFire:   []string{string(KindPageScrape)},
			GoogleDrive: []string{string(KindPageScrape)},
			Unknown:     nil,
		},
		Mega: MegaConfig{
			APIEndpoint: "https://g.api.mega.co.nz/cs",
			Timeout:     2 * time.Minute,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "~/.obidl/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}

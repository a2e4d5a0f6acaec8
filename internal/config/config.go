// Package config provides the configuration structure for voice-studio.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	ProfilesDir string `toml:"profiles_dir"`
	UploadsDir  string `toml:"uploads_dir"`
	BaseLogsDir string `toml:"base_logs_dir"`
}

// EngineConfig holds the configuration for the external TTS inference
// service and the default synthesis options applied when a request leaves
// them unset.
type EngineConfig struct {
	ServiceURL        string  `toml:"service_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	Speed             float64 `toml:"speed"`
	NFESteps          int     `toml:"nfe_steps"`
	CrossFadeDuration float64 `toml:"cross_fade_duration"`
	RemoveSilence     bool    `toml:"remove_silence"`
}

// WhisperConfig holds the configuration for the transcription service. The
// API key is read from the OPENAI_API_KEY environment variable, not from the
// configuration file.
type WhisperConfig struct {
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SilenceConfig holds the configuration for the external silence-removal
// filter.
type SilenceConfig struct {
	FFmpegPath  string  `toml:"ffmpeg_path"`
	ThresholdDB float64 `toml:"threshold_db"`
}

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	Port            int `toml:"port"`
	MaxUploadBytes  int `toml:"max_upload_bytes"`
	TimeoutSeconds  int `toml:"timeout_seconds"`
	ShutdownSeconds int `toml:"shutdown_seconds"`
}

// Config is the root configuration structure.
type Config struct {
	Paths   PathsConfig   `toml:"paths"`
	Engine  EngineConfig  `toml:"engine"`
	Whisper WhisperConfig `toml:"whisper"`
	Silence SilenceConfig `toml:"silence"`
	Server  ServerConfig  `toml:"server"`
}

// Load loads the configuration for voice-studio.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}

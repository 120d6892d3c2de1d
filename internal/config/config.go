// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	SessionIdleTTL time.Duration // idle conversations are evicted after this
	SweepInterval  time.Duration
	GRPCHealthAddr string // empty disables the gRPC health listener
	LogLevel       slog.Level
	Voice          VoiceConfig
}

// VoiceConfig names host programs backing speech output and recognition.
// Empty values fall back to auto-detection (TTS) or disable the feature (STT).
type VoiceConfig struct {
	TTSCommand string
	STTCommand string
}

// fileConfig is the YAML overlay layout. Durations use time.ParseDuration syntax.
type fileConfig struct {
	Port           string `yaml:"port"`
	FrontendURL    string `yaml:"frontend_url"`
	DBPath         string `yaml:"db_path"`
	SessionIdleTTL string `yaml:"session_idle_ttl"`
	SweepInterval  string `yaml:"sweep_interval"`
	GRPCHealthAddr string `yaml:"grpc_health_addr"`
	LogLevel       string `yaml:"log_level"`
	Voice          struct {
		TTSCommand string `yaml:"tts_command"`
		STTCommand string `yaml:"stt_command"`
	} `yaml:"voice"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:           "8080",
		DBPath:         "./data/chatbot.db",
		SessionIdleTTL: 60 * time.Minute,
		SweepInterval:  5 * time.Minute,
		LogLevel:       slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any), and then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.FrontendURL, fc.FrontendURL)
	setString(&c.DBPath, fc.DBPath)
	setString(&c.GRPCHealthAddr, fc.GRPCHealthAddr)
	setString(&c.Voice.TTSCommand, fc.Voice.TTSCommand)
	setString(&c.Voice.STTCommand, fc.Voice.STTCommand)
	if err := setDuration(&c.SessionIdleTTL, "session_idle_ttl", fc.SessionIdleTTL); err != nil {
		return err
	}
	if err := setDuration(&c.SweepInterval, "sweep_interval", fc.SweepInterval); err != nil {
		return err
	}
	return setLevel(&c.LogLevel, "log_level", fc.LogLevel)
}

func (c *Config) applyEnv() error {
	setString(&c.Port, os.Getenv("PORT"))
	setString(&c.FrontendURL, os.Getenv("FRONTEND_URL"))
	setString(&c.DBPath, os.Getenv("DB_PATH"))
	setString(&c.GRPCHealthAddr, os.Getenv("GRPC_HEALTH_ADDR"))
	setString(&c.Voice.TTSCommand, os.Getenv("TTS_COMMAND"))
	setString(&c.Voice.STTCommand, os.Getenv("STT_COMMAND"))
	if err := setDuration(&c.SessionIdleTTL, "SESSION_IDLE_TTL", os.Getenv("SESSION_IDLE_TTL")); err != nil {
		return err
	}
	if err := setDuration(&c.SweepInterval, "SWEEP_INTERVAL", os.Getenv("SWEEP_INTERVAL")); err != nil {
		return err
	}
	return setLevel(&c.LogLevel, "LOG_LEVEL", os.Getenv("LOG_LEVEL"))
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if c.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(c.FrontendURL, "/"))
	}
	return origins
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func setLevel(dst *slog.Level, name, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

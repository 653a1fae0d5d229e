package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	CORS   CORSConfig   `yaml:"cors"`
	Store  StoreConfig  `yaml:"store"`
	Deck   DeckConfig   `yaml:"deck"`
	SRS    SRSConfig    `yaml:"srs"`
	Test   TestConfig   `yaml:"test"`
	Eval   EvalConfig   `yaml:"eval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"7861"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings for the SPA frontend.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"http://localhost:5173,http://127.0.0.1:5173"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Path string `yaml:"path" env:"STORE_PATH" env-default:"./flashcoach.db"`
}

// DeckConfig holds deck parsing settings.
type DeckConfig struct {
	// DefaultDurationSec is substituted when a row has no duration or a
	// non-positive one. A parsing leniency, not a validation rule.
	DefaultDurationSec int `yaml:"default_duration_sec" env:"DECK_DEFAULT_DURATION_SEC" env-default:"10"`
}

// SRSConfig holds spaced-repetition settings.
type SRSConfig struct {
	// AdvanceOn controls which grades auto-advance the study cursor:
	// "know" (only Know), "hard" (Hard and Know), or "never".
	AdvanceOn string `yaml:"advance_on" env:"SRS_ADVANCE_ON" env-default:"know"`
}

// TestConfig holds test-mode session settings.
type TestConfig struct {
	// Settle is the deliberate delay between releasing one capture and
	// acquiring the next, letting the hardware settle.
	Settle time.Duration `yaml:"settle" env:"TEST_SETTLE" env-default:"250ms"`
	// CaptureCommand is the recorder binary invoked to capture audio.
	// It receives the output path as its final argument.
	CaptureCommand string `yaml:"capture_command" env:"TEST_CAPTURE_COMMAND" env-default:"arecord -q -f cd"`
}

// EvalConfig holds evaluation endpoint settings.
type EvalConfig struct {
	URL             string        `yaml:"url"               env:"EVAL_URL"               env-default:"http://localhost:8000/api/process_test"`
	Timeout         time.Duration `yaml:"timeout"           env:"EVAL_TIMEOUT"           env-default:"60s"`
	Rubric          string        `yaml:"rubric"            env:"EVAL_RUBRIC"            env-default:"Say the meaning of the card front in your own words."`
	SubmitPerMinute int           `yaml:"submit_per_minute" env:"EVAL_SUBMIT_PER_MINUTE" env-default:"6"`
}

// Package config loads VocalPal settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
)

// Config is the process configuration. Flags in cmd/vocalpal may override
// individual fields after Load.
type Config struct {
	UserID    string `env:"VOCALPAL_USER_ID"   envDefault:"local-child"`
	Condition string `env:"VOCALPAL_CONDITION" envDefault:"none"`

	Store         string `env:"VOCALPAL_STORE"           envDefault:"memory"`
	SQLitePath    string `env:"VOCALPAL_SQLITE_PATH"     envDefault:".vocalpal/progress.db"`
	SupabaseURL   string `env:"SUPABASE_URL"`
	SupabaseKey   string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseTable string `env:"VOCALPAL_SUPABASE_TABLE"  envDefault:"users"`

	AzureSpeechKey    string        `env:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string        `env:"AZURE_SPEECH_REGION"`
	Voice             string        `env:"VOCALPAL_VOICE"          envDefault:"en-US-AnaNeural"`
	VoiceReplies      bool          `env:"VOCALPAL_VOICE_REPLIES"  envDefault:"true"`
	TTSCacheDir       string        `env:"VOCALPAL_TTS_CACHE_DIR"  envDefault:".vocalpal/tts-cache"`
	DiskCache         bool          `env:"VOCALPAL_DISK_CACHE"     envDefault:"true"`
	WhisperBin        string        `env:"VOCALPAL_WHISPER_BIN"`
	WhisperModel      string        `env:"VOCALPAL_WHISPER_MODEL"  envDefault:"bin/ggml-small.bin"`
	Locale            string        `env:"VOCALPAL_LOCALE"         envDefault:"en-US"`
	ListenTimeout     time.Duration `env:"VOCALPAL_LISTEN_TIMEOUT" envDefault:"5s"`

	HTTPAddr string `env:"VOCALPAL_HTTP_ADDR"  envDefault:":8080"`
	LogLevel string `env:"VOCALPAL_LOG_LEVEL"  envDefault:"normal"`
	LogFile  string `env:"VOCALPAL_LOG_FILE"   envDefault:".vocalpal/vocalpal.log"`
}

// Load reads .env files (a missing file is fine) and parses the
// environment.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return cfg, nil
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.UserID) == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("VOCALPAL_SQLITE_PATH is required for the sqlite store"))
		}
	case StoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, sqlite or supabase)", c.Store))
	}
	if c.ListenTimeout <= 0 {
		errs = append(errs, fmt.Errorf("listen timeout must be positive, got %s", c.ListenTimeout))
	}
	return errors.Join(errs...)
}

// SpeechEnabled reports whether Azure synthesis credentials are set.
func (c Config) SpeechEnabled() bool {
	return c.AzureSpeechKey != "" && c.AzureSpeechRegion != ""
}

// RecognitionEnabled reports whether a whisper binary is configured.
func (c Config) RecognitionEnabled() bool {
	return strings.TrimSpace(c.WhisperBin) != ""
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.UserID != "local-child" || cfg.Condition != "none" {
		t.Fatalf("user/condition = %q/%q", cfg.UserID, cfg.Condition)
	}
	if cfg.Store != StoreMemory || cfg.SupabaseTable != "users" {
		t.Fatalf("store = %q table = %q", cfg.Store, cfg.SupabaseTable)
	}
	if cfg.ListenTimeout != 5*time.Second || cfg.Locale != "en-US" {
		t.Fatalf("speech = %s %s", cfg.ListenTimeout, cfg.Locale)
	}
	if cfg.Voice != "en-US-AnaNeural" || !cfg.VoiceReplies {
		t.Fatalf("voice = %q replies=%v", cfg.Voice, cfg.VoiceReplies)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("VOCALPAL_STORE", " SQLite ")
	t.Setenv("VOCALPAL_CONDITION", "adhd")
	t.Setenv("VOCALPAL_LISTEN_TIMEOUT", "8s")
	t.Setenv("VOCALPAL_VOICE_REPLIES", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store != StoreSQLite || cfg.Condition != "adhd" {
		t.Fatalf("store/condition = %q/%q", cfg.Store, cfg.Condition)
	}
	if cfg.ListenTimeout != 8*time.Second || cfg.VoiceReplies {
		t.Fatalf("timeout=%s replies=%v", cfg.ListenTimeout, cfg.VoiceReplies)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("VOCALPAL_USER_ID=kid-42\nAZURE_SPEECH_KEY=k\nAZURE_SPEECH_REGION=westeurope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("VOCALPAL_USER_ID")
		os.Unsetenv("AZURE_SPEECH_KEY")
		os.Unsetenv("AZURE_SPEECH_REGION")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "kid-42" || !cfg.SpeechEnabled() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("VOCALPAL_LISTEN_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := Config{UserID: "kid", Store: StoreMemory, SQLitePath: "p.db", ListenTimeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(*Config) {}, ""},
		{"sqlite ok", func(c *Config) { c.Store = StoreSQLite }, ""},
		{"sqlite without path", func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" }, "VOCALPAL_SQLITE_PATH"},
		{"supabase without keys", func(c *Config) { c.Store = StoreSupabase }, "SUPABASE_URL"},
		{"supabase ok", func(c *Config) {
			c.Store = StoreSupabase
			c.SupabaseURL = "https://x.supabase.co"
			c.SupabaseKey = "secret"
		}, ""},
		{"unknown store", func(c *Config) { c.Store = "redis" }, "unknown store"},
		{"empty user", func(c *Config) { c.UserID = " " }, "user id"},
		{"zero timeout", func(c *Config) { c.ListenTimeout = 0 }, "listen timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestRecognitionEnabled(t *testing.T) {
	if (Config{}).RecognitionEnabled() {
		t.Fatal("empty whisper bin should disable recognition")
	}
	if !(Config{WhisperBin: "whisper-cli"}).RecognitionEnabled() {
		t.Fatal("whisper bin should enable recognition")
	}
}

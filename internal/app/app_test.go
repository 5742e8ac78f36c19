package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LIKERLAND_API_URL", "https://api.liker.land/v1")
	t.Setenv("LIKECO_API_URL", "https://api.like.co")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "")
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setRequiredEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.LikerLandAPIURL != "https://api.liker.land/v1" {
		t.Errorf("LikerLandAPIURL = %q", cfg.LikerLandAPIURL)
	}
	if cfg.PersistenceEnabled() {
		t.Error("persistence should be disabled without DATABASE_URL")
	}

	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "error")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("warn log should be filtered, got %s", buf.String())
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("LIKERLAND_API_URL", "")
	t.Setenv("LIKECO_API_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "postgres://likereader:secret@db:5432/likereader?sslmode=disable",
			want: "postgres://likereader:xxxxx@db:5432/likereader",
		},
		{in: "postgres://db:5432/likereader", want: "postgres://db:5432/likereader"},
		{in: "redis://:secret@cache:6379/0", want: "redis://:xxxxx@cache:6379/0"},
		{in: "not a url", want: "***"},
		{in: "", want: "***"},
	}

	for _, tt := range tests {
		if got := maskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

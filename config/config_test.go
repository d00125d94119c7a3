package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "missing placeholder",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "https://openlibrary.org/isbn/"
			},
			wantErr: "placeholder",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http:///{isbn}"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = -1
			},
			wantErr: "max retries",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "zero dedupe size",
			mutate: func(cfg *Config) {
				cfg.DedupeMaxSize = 0
			},
			wantErr: "dedupe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLookupURL(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.LookupURL("9780140328721"), "https://openlibrary.org/isbn/9780140328721.json"; got != want {
		t.Fatalf("LookupURL = %q, want %q", got, want)
	}
}

func TestLoadFileOverlaysValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isbnstats.yaml")
	doc := "input_file: list.txt\ntimeout: 5s\nmax_retries: 2\noutput_format: dual\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.InputFile != "list.txt" || cfg.Timeout != 5*time.Second || cfg.MaxRetries != 2 || cfg.OutputFormat != "dual" {
		t.Fatalf("unexpected config after overlay: %+v", cfg)
	}
	if cfg.OutputFile != DefaultConfig().OutputFile {
		t.Fatalf("unset keys should keep defaults, got output %q", cfg.OutputFile)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"TIMEOUT", "750ms")
	t.Setenv(EnvPrefix+"MAX_RETRIES", "3")
	t.Setenv(EnvPrefix+"FORMAT", "JSON")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Timeout != 750*time.Millisecond {
		t.Fatalf("timeout = %v, want 750ms", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.OutputFormat != "json" {
		t.Fatalf("format = %q, want json", cfg.OutputFormat)
	}
}

func TestApplyEnvRejectsBadInt(t *testing.T) {
	t.Setenv(EnvPrefix+"MAX_RETRIES", "many")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil || !strings.Contains(err.Error(), "MAX_RETRIES") {
		t.Fatalf("expected MAX_RETRIES error, got %v", err)
	}
}

func TestLoadEnvFileMissingIsNotAnError(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(EnvPrefix+"INPUT=from-dotenv.txt\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvPrefix+"INPUT", "")
	os.Unsetenv(EnvPrefix + "INPUT")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.InputFile != "from-dotenv.txt" {
		t.Fatalf("input = %q, want from-dotenv.txt", cfg.InputFile)
	}
}

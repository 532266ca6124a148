package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("S3_FORCE_PATH_STYLE", "false")
	t.Setenv("GEOCODING_LIMIT", "8")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.JWT.Secret != "test-secret" {
		t.Fatalf("secret not taken from env: %q", cfg.JWT.Secret)
	}
	if cfg.Storage.S3.ForcePathStyle {
		t.Fatal("expected nested bool override to apply")
	}
	if cfg.Geocoding.Limit != 8 {
		t.Fatalf("limit = %d, want 8", cfg.Geocoding.Limit)
	}
	if cfg.Weather.HorizonDays != 16 {
		t.Fatalf("horizon = %d, want 16", cfg.Weather.HorizonDays)
	}
	if cfg.Storage.Bucket != "gpx-files" {
		t.Fatalf("bucket = %q", cfg.Storage.Bucket)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "server:\n  port: \"9090\"\njwt:\n  secret: from-file\nstorage:\n  driver: local\n  local_path: /tmp/gpx\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("port = %q, env should win over file", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "from-file" || cfg.Storage.LocalPath != "/tmp/gpx" {
		t.Fatalf("file values not applied: %+v", cfg.Storage)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "JWT secret"},
		{name: "bad debounce", mutate: func(c *Config) { c.Geocoding.Debounce = "soon" }, wantErr: "geocoding debounce"},
		{name: "s3 without endpoint", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: "S3 endpoint"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "ftp" }, wantErr: "unknown storage driver"},
		{name: "bad timezone", mutate: func(c *Config) { c.Server.Timezone = "Mars/Olympus" }, wantErr: "invalid timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			cfg.JWT.Secret = "s"
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestProcessStructFieldsRejectsBadInt(t *testing.T) {
	t.Setenv("GEOCODING_LIMIT", "many")
	cfg := &Config{}
	err := processStructFields(cfg)
	if err == nil || !strings.Contains(err.Error(), "geocoding.limit") {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Timezone = "Mars/Olympus"
	if loc := cfg.Location(); loc != time.UTC {
		t.Fatalf("Location() = %v, want UTC", loc)
	}
}

package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/config"
)

func TestNewBlobStoreLocal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "local"
	cfg.Storage.Bucket = "gpx-files"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Server.PublicBaseURL = "http://localhost:8080/"

	store, local, err := NewBlobStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	if local == nil || local.BasePath() != cfg.Storage.LocalPath {
		t.Fatalf("local store not returned: %+v", local)
	}

	url, err := store.Put(context.Background(), "u1/1-a.gpx", strings.NewReader("<gpx/>"), 6, "application/gpx+xml")
	if err != nil {
		t.Fatal(err)
	}
	if url != "http://localhost:8080/uploads/gpx-files/u1/1-a.gpx" {
		t.Fatalf("url = %q", url)
	}
}

func TestNewBlobStoreS3RequiresCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "s3"
	cfg.Storage.Bucket = "gpx-files"
	cfg.Storage.S3.Endpoint = "http://127.0.0.1:9000"

	if _, _, err := NewBlobStore(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected missing credentials to fail")
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/motobuddies.yaml")
	if got := ConfigPath(); got != "/etc/motobuddies.yaml" {
		t.Fatalf("ConfigPath() = %q", got)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "http://shop.test/api/")
	t.Setenv("STORAGE_DRIVER", "REDIS")
	t.Setenv("SYNC_MAX_RETRIES", "not-a-number")
	t.Setenv("RETRY_BASE_DELAY_MS", "50")

	cfg := Load()

	if cfg.RemoteBaseURL != "http://shop.test/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.RemoteBaseURL)
	}
	if cfg.StorageDriver != "redis" {
		t.Fatalf("expected lowercased driver, got %q", cfg.StorageDriver)
	}
	if cfg.SyncMaxRetries != 3 {
		t.Fatalf("expected default retries on bad input, got %d", cfg.SyncMaxRetries)
	}
	if cfg.RetryBaseDelay != 50*time.Millisecond {
		t.Fatalf("expected 50ms base delay, got %v", cfg.RetryBaseDelay)
	}
	if AppEnv.RemoteBaseURL != cfg.RemoteBaseURL {
		t.Fatal("expected AppEnv to be populated")
	}
}

func TestGetDurationEnvRejectsNonPositive(t *testing.T) {
	t.Setenv("SOME_TTL", "0")
	if got := getDurationEnv("SOME_TTL", 7, time.Hour); got != 7*time.Hour {
		t.Fatalf("expected default, got %v", got)
	}
}

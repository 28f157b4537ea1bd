package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MAX_INPUT_FILE_MB", "MAX_TOTAL_INPUT_MB", "ALLOWED_MIME_TYPES", "FILE_TTL_HOURS", "ENFORCE_PAGE_LIMITS", "PAGE_CAPS", "STORAGE_DIR", "S3_BUCKET", "S3_MIRROR", "WORKER_MAX_ATTEMPTS", "WORKER_RETRY_BACKOFF", "S3_ENCRYPTION_PASSWORD"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.Limits.MaxInputFileMB != 50 {
		t.Errorf("Expected MaxInputFileMB 50, got %d", cfg.Limits.MaxInputFileMB)
	}
	if cfg.Limits.MaxTotalInputMB != 200 {
		t.Errorf("Expected MaxTotalInputMB 200, got %d", cfg.Limits.MaxTotalInputMB)
	}
	want := []string{"application/pdf", "image/jpeg", "image/png"}
	if !reflect.DeepEqual(cfg.Limits.AllowedMIMETypes, want) {
		t.Errorf("Expected allowed types %v, got %v", want, cfg.Limits.AllowedMIMETypes)
	}
	if !cfg.Limits.EnforcePageLimits {
		t.Error("Expected page limits to be enforced by default")
	}
	caps := map[int]int{1: 15, 2: 32, 4: 64, 5: 80}
	if !reflect.DeepEqual(cfg.Limits.PageCaps, caps) {
		t.Errorf("Expected page caps %v, got %v", caps, cfg.Limits.PageCaps)
	}
	if cfg.FileTTL() != 6*time.Hour {
		t.Errorf("Expected TTL 6h, got %s", cfg.FileTTL())
	}
	if cfg.Storage.Dir != "storage" {
		t.Errorf("Expected storage dir 'storage', got %q", cfg.Storage.Dir)
	}
	if cfg.S3.Enabled {
		t.Error("Expected S3 mirror disabled without a bucket")
	}
	if cfg.S3.Password != "" {
		t.Error("Expected no encryption password by default")
	}
	if cfg.Worker.MaxAttempts != 3 || cfg.Worker.RetryBackoff != 5*time.Second {
		t.Errorf("Expected 3 attempts with 5s backoff, got %d/%s", cfg.Worker.MaxAttempts, cfg.Worker.RetryBackoff)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MAX_INPUT_FILE_MB", "10")
	t.Setenv("ENFORCE_PAGE_LIMITS", "no")
	t.Setenv("PAGE_CAPS", "3:20, bad, 7:x")
	t.Setenv("PUBLIC_PREFIX", "https://cdn.example.com/")
	t.Setenv("S3_MIRROR", "true")
	t.Setenv("S3_BUCKET", "outputs")

	cfg := FromEnv()
	if cfg.Limits.MaxInputFileMB != 10 {
		t.Errorf("Expected 10, got %d", cfg.Limits.MaxInputFileMB)
	}
	if cfg.Limits.EnforcePageLimits {
		t.Error("Expected page limits disabled")
	}
	if !reflect.DeepEqual(cfg.Limits.PageCaps, map[int]int{3: 20}) {
		t.Errorf("Expected only valid caps, got %v", cfg.Limits.PageCaps)
	}
	if cfg.Storage.PublicPrefix != "https://cdn.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.Storage.PublicPrefix)
	}
	if !cfg.S3.Enabled {
		t.Error("Expected S3 mirror enabled")
	}
}

func TestParseHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"TRUE", true},
		{" yes ", true},
		{"on", true},
		{"0", false},
		{"", false},
		{"nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseBool(tt.in); got != tt.want {
				t.Errorf("parseBool(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if got := parseInt("abc", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
	if got := parseDuration("bogus", time.Second); got != time.Second {
		t.Errorf("Expected default 1s, got %s", got)
	}
}

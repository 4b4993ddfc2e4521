package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PAYVIEW_BASE_URL", "https://payview.example")
	t.Setenv("PAYVIEW_AUTH_SECRET", "secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("S3_BUCKET", "payview-objects")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PLATFORM_FEE_PERCENT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "payview.db" {
		t.Errorf("db path = %q, want payview.db", cfg.DBPath)
	}
	if cfg.PlatformFeePercent != 5 {
		t.Errorf("fee percent = %v, want default 5", cfg.PlatformFeePercent)
	}
	if cfg.S3Region != "auto" {
		t.Errorf("s3 region = %q, want auto", cfg.S3Region)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYVIEW_BASE_URL", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required configuration")
	}
	for _, name := range []string{"PAYVIEW_BASE_URL", "STRIPE_WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name missing %s", err, name)
		}
	}
}

func TestLoadTrimsBaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYVIEW_BASE_URL", "https://payview.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://payview.example" {
		t.Errorf("base url = %q, want trailing slash trimmed", cfg.BaseURL)
	}
}

func TestLoadFeePercent(t *testing.T) {
	setRequired(t)

	t.Setenv("PLATFORM_FEE_PERCENT", "7.5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlatformFeePercent != 7.5 {
		t.Errorf("fee percent = %v, want 7.5", cfg.PlatformFeePercent)
	}

	for _, bad := range []string{"abc", "-1", "101"} {
		t.Setenv("PLATFORM_FEE_PERCENT", bad)
		if _, err := Load(); err == nil {
			t.Errorf("fee percent %q: expected error", bad)
		}
	}
}

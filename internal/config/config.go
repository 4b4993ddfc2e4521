package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment. Required
// values are validated by Load so a misconfigured deployment fails at
// startup rather than on the first checkout.
type Config struct {
	Port    string
	DBPath  string
	BaseURL string

	// AuthSecret verifies bearer tokens issued by the identity provider.
	AuthSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	PlatformFeePercent  float64

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	PostmarkToken string
	FromEmail     string

	LogLevel string
}

// Load reads configuration from a .env file (if present) and the process
// environment, then validates required values.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:                getenv("PAYVIEW_PORT", "8080"),
		DBPath:              getenv("PAYVIEW_DB_PATH", "payview.db"),
		BaseURL:             os.Getenv("PAYVIEW_BASE_URL"),
		AuthSecret:          os.Getenv("PAYVIEW_AUTH_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3Region:            getenv("S3_REGION", "auto"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		PostmarkToken:       os.Getenv("PAYVIEW_POSTMARK_TOKEN"),
		FromEmail:           os.Getenv("PAYVIEW_FROM_EMAIL"),
		LogLevel:            os.Getenv("PAYVIEW_LOG_LEVEL"),
		PlatformFeePercent:  5,
	}

	if v := os.Getenv("PLATFORM_FEE_PERCENT"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil || pct < 0 || pct > 100 {
			return Config{}, fmt.Errorf("invalid PLATFORM_FEE_PERCENT %q", v)
		}
		cfg.PlatformFeePercent = pct
	}

	var missing []string
	for _, req := range []struct {
		name, value string
	}{
		{"PAYVIEW_BASE_URL", cfg.BaseURL},
		{"PAYVIEW_AUTH_SECRET", cfg.AuthSecret},
		{"STRIPE_SECRET_KEY", cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret},
		{"S3_BUCKET", cfg.S3Bucket},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

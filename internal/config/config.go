package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CashfreeConfig holds the gateway credentials. Environment selects the
// sandbox or production API host; TEST/sandbox and PROD/production are
// both accepted for compatibility with older deployments.
type CashfreeConfig struct {
	ClientID      string
	ClientSecret  string
	Environment   string // TEST or PROD
	WebhookSecret string
}

func (c CashfreeConfig) IsProd() bool {
	switch strings.ToUpper(c.Environment) {
	case "PROD", "PRODUCTION", "LIVE":
		return true
	}
	return false
}

type SMTPConfig struct {
	// Service is a preset selector: gmail, outlook or custom.
	// gmail/outlook fill Host/Port/TLSMode; custom reads them from env.
	Service string

	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "tls" | "starttls" | ""
	SkipVerifyTLS bool

	FromAddr string
	FromName string
}

type StorageConfig struct {
	Driver string // local | s3

	LocalDir string

	S3Region string
	S3Bucket string
	S3Prefix string
}

type Config struct {
	Port     string
	DBDSN    string
	Cashfree CashfreeConfig
	SMTP     SMTPConfig
	Storage  StorageConfig

	FrontendURL string
	BackendURL  string
	CORSOrigins []string
}

// Load reads the full configuration from environment variables.
// godotenv.Load in main has already merged .env for local runs.
func Load() (Config, error) {
	cfg := Config{
		Port:  envOr("PORT", "8080"),
		DBDSN: os.Getenv("DB_DSN"),
		Cashfree: CashfreeConfig{
			ClientID:      os.Getenv("CASHFREE_APP_ID"),
			ClientSecret:  os.Getenv("CASHFREE_SECRET_KEY"),
			Environment:   envOr("CASHFREE_ENVIRONMENT", "TEST"),
			WebhookSecret: os.Getenv("CASHFREE_WEBHOOK_SECRET"),
		},
		SMTP:        loadSMTP(),
		Storage:     loadStorage(),
		FrontendURL: envOr("FRONTEND_URL", "http://localhost:3000"),
		BackendURL:  envOr("BACKEND_URL", "http://localhost:8080"),
		CORSOrigins: splitOrigins(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.Cashfree.ClientID == "" || cfg.Cashfree.ClientSecret == "" {
		return Config{}, fmt.Errorf("config: CASHFREE_APP_ID and CASHFREE_SECRET_KEY are required")
	}
	return cfg, nil
}

func loadSMTP() SMTPConfig {
	c := SMTPConfig{
		Service:  envOr("EMAIL_SERVICE", "gmail"),
		User:     os.Getenv("EMAIL_USER"),
		Pass:     os.Getenv("EMAIL_PASSWORD"),
		FromAddr: envOr("EMAIL_FROM", os.Getenv("EMAIL_USER")),
		FromName: envOr("EMAIL_FROM_NAME", "AstroVani"),
	}

	switch c.Service {
	case "gmail":
		c.Host = "smtp.gmail.com"
		c.Port = "465"
		c.TLSMode = "tls"
	case "outlook":
		c.Host = "smtp-mail.outlook.com"
		c.Port = "587"
		c.TLSMode = "starttls"
	default: // custom
		c.Host = os.Getenv("EMAIL_HOST")
		c.Port = envOr("EMAIL_PORT", "587")
		if secure, _ := strconv.ParseBool(os.Getenv("EMAIL_SECURE")); secure {
			c.TLSMode = "tls"
		} else {
			c.TLSMode = "starttls"
		}
	}
	return c
}

func loadStorage() StorageConfig {
	return StorageConfig{
		Driver:   envOr("STORAGE_DRIVER", "local"),
		LocalDir: envOr("LOCAL_ARCHIVE_DIR", "./storage/webhooks"),
		S3Region: os.Getenv("S3_REGION"),
		S3Bucket: os.Getenv("S3_BUCKET"),
		S3Prefix: envOr("S3_PREFIX", "webhooks"),
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

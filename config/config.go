package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const insecureDefaultSecret = "change-me-in-production"

// Config is built once at startup and passed to each component. It is never
// mutated afterwards.
type Config struct {
	Port     string
	LogLevel string
	MongoURI string
	DBName   string

	JWTSecret  string
	BcryptCost int

	CORSAllowedOrigins []string

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	MailQueueSize int
	MailWorkers   int

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	MaxUploadMB   int64
}

// RequiredEnvVars must be set; Load fails if any is missing.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"JWT_SECRET",
}

// OptionalEnvVars are reported at startup so operators can confirm what was loaded.
var OptionalEnvVars = []string{
	"PORT",
	"LOG_LEVEL",
	"MONGODB_DB",
	"BCRYPT_ROUNDS",
	"CORS_ALLOWED_ORIGINS",
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USERNAME",
	"SMTP_PASSWORD",
	"MAIL_FROM",
	"MAIL_QUEUE_SIZE",
	"MAIL_WORKERS",
	"AWS_S3_BUCKET",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"MAX_UPLOAD_MB",
}

var secretEnvVars = map[string]bool{
	"JWT_SECRET":            true,
	"MONGODB_URI":           true,
	"SMTP_PASSWORD":         true,
	"AWS_ACCESS_KEY_ID":     true,
	"AWS_SECRET_ACCESS_KEY": true,
}

func Load() (*Config, error) {
	var missing []string
	for _, key := range RequiredEnvVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Port:               getEnv("PORT", "4000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MongoURI:           strings.TrimSpace(os.Getenv("MONGODB_URI")),
		DBName:             getEnv("MONGODB_DB", "sschool"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		BcryptCost:         getEnvInt("BCRYPT_ROUNDS", 12),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		MailFrom:           getEnv("MAIL_FROM", "no-reply@sschool.local"),
		MailQueueSize:      getEnvInt("MAIL_QUEUE_SIZE", 100),
		MailWorkers:        getEnvInt("MAIL_WORKERS", 2),
		S3Bucket:           getEnv("AWS_S3_BUCKET", ""),
		S3Region:           getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MaxUploadMB:        int64(getEnvInt("MAX_UPLOAD_MB", 5)),
	}

	if cfg.JWTSecret == insecureDefaultSecret {
		return nil, errors.New("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_ROUNDS must be between 4 and 31 (got %d)", cfg.BcryptCost)
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive (got %d)", cfg.MaxUploadMB)
	}
	return cfg, nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// StorageEnabled reports whether cover uploads can be stored.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

// LogEnv reports which variables were loaded without printing secret values.
func LogEnv(logger *slog.Logger) {
	for _, key := range append(append([]string{}, RequiredEnvVars...), OptionalEnvVars...) {
		v := strings.TrimSpace(os.Getenv(key))
		switch {
		case v == "":
			logger.Info("env not set", slog.String("key", key))
		case secretEnvVars[key]:
			logger.Info("env loaded", slog.String("key", key))
		default:
			logger.Info("env loaded", slog.String("key", key), slog.String("value", v))
		}
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

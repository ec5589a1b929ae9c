package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	PublicBaseURL  string
	FrontendURL    string

	DBHost    string
	DBUser    string
	DBPass    string
	DBName    string
	DBPort    string
	DBSSLMode string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	JWTTTL         time.Duration
	FlowTTL        time.Duration
	OTPMaxAttempts int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OAuthTimeout       time.Duration

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	MailFrom    string
	MailTimeout time.Duration

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	PaymentCurrency   string
	PaymentTimeout    time.Duration

	CloudinaryURL          string
	CloudinaryUploadFolder string
	UploadDir              string

	MeiliHost       string
	MeiliAPIKey     string
	ReindexSchedule string

	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),

		DBHost:    getEnv("DB_HOST", "localhost"),
		DBUser:    getEnv("DB_USER", "postgres"),
		DBPass:    os.Getenv("DB_PASS"),
		DBName:    getEnv("DB_NAME", "sparkvest"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBSSLMode: getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: getEnv("MAIL_FROM", "no-reply@sparkvest.local"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		PaymentCurrency:   getEnv("PAYMENT_CURRENCY", "INR"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "sparkvest"),
		UploadDir:              getEnv("UPLOAD_DIR", "static"),

		MeiliHost:       os.Getenv("MEILI_HOST"),
		MeiliAPIKey:     os.Getenv("MEILI_API_KEY"),
		ReindexSchedule: getEnv("REINDEX_SCHEDULE", "@every 1h"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@gmail.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != "development" {
			return nil, fmt.Errorf("JWT_SECRET must be set outside development")
		}
		cfg.JWTSecret = "dev-secret"
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.OTPMaxAttempts, err = strconv.Atoi(getEnv("OTP_MAX_ATTEMPTS", "5")); err != nil {
		return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %w", err)
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"JWT_TTL", "24h", &cfg.JWTTTL},
		{"FLOW_TTL", "10m", &cfg.FlowTTL},
		{"OAUTH_TIMEOUT", "10s", &cfg.OAuthTimeout},
		{"MAIL_TIMEOUT", "10s", &cfg.MailTimeout},
		{"PAYMENT_TIMEOUT", "15s", &cfg.PaymentTimeout},
	}
	for _, d := range durations {
		*d.dst, err = parseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

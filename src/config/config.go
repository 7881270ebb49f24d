package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string
	LogLevel string

	PyrusAPIKey  string
	PyrusFormID  string
	PyrusBaseURL string

	B2BBaseURL  string
	B2BUsername string
	B2BPassword string

	WebhookSecret string

	DatabasePath string

	HTTPClientTimeout   time.Duration
	MaxWebhookBodyBytes int64

	// Optional failure alerting via Mailgun. Alerts are disabled when the
	// domain or API key is left empty.
	MailgunDomain        string
	MailgunPrivateAPIKey string
	AlertSenderEmail     string
	AlertSenderName      string
	AlertRecipientEmail  string
}

// Load reads configuration from the environment (and an optional .env file)
// and returns an immutable config struct. Components receive it through their
// constructors; nothing reads the environment after startup.
func Load() *AppConfig {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	httpTimeoutStr := getEnv("HTTP_CLIENT_TIMEOUT", "15s")
	httpTimeout, err := time.ParseDuration(httpTimeoutStr)
	if err != nil {
		log.Printf("WARNING: Invalid HTTP_CLIENT_TIMEOUT format '%s'. Using default 15s. Error: %v", httpTimeoutStr, err)
		httpTimeout = 15 * time.Second
	}

	maxBodyBytesStr := getEnv("MAX_WEBHOOK_BODY_BYTES", "1048576")
	maxBodyBytes, err := strconv.ParseInt(maxBodyBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_WEBHOOK_BODY_BYTES format '%s'. Using default 1MiB. Error: %v", maxBodyBytesStr, err)
		maxBodyBytes = 1 << 20
	}

	cfg := &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PyrusAPIKey:  mustEnv("PYRUS_API_KEY"),
		PyrusFormID:  mustEnv("PYRUS_FORM_ID"),
		PyrusBaseURL: getEnv("PYRUS_BASE_URL", "https://pyrus.com/api/v4"),

		B2BBaseURL:  mustEnv("B2B_CENTER_URL"),
		B2BUsername: mustEnv("B2B_CENTER_USERNAME"),
		B2BPassword: mustEnv("B2B_CENTER_PASSWORD"),

		WebhookSecret: mustEnv("WEBHOOK_SECRET"),

		DatabasePath: getEnv("DATABASE_PATH", "./purchasesync.db"),

		HTTPClientTimeout:   httpTimeout,
		MaxWebhookBodyBytes: maxBodyBytes,

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		AlertSenderEmail:     getEnv("ALERT_SENDER_EMAIL", "noreply@example.com"),
		AlertSenderName:      getEnv("ALERT_SENDER_NAME", "PurchaseSync"),
		AlertRecipientEmail:  getEnv("ALERT_RECIPIENT_EMAIL", ""),
	}

	if len(cfg.WebhookSecret) < 16 {
		log.Fatalf("FATAL: WEBHOOK_SECRET must be at least 16 bytes long. Current length: %d", len(cfg.WebhookSecret))
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, PyrusBaseURL=%s, B2BBaseURL=%s, DBPath=%s",
		cfg.Port, cfg.LogLevel, cfg.PyrusBaseURL, cfg.B2BBaseURL, cfg.DatabasePath)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// mustEnv aborts startup when a required variable is missing. A missing
// credential must never degrade into silent malformed requests upstream.
func mustEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		log.Fatalf("FATAL: required environment variable %s is not set.", key)
	}
	return value
}

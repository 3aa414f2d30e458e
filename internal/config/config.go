package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
	API struct {
		Port     string
		BasePath string
	}
	Emergency struct {
		FallbackLatitude  float64
		FallbackLongitude float64
		OpTimeout         time.Duration
	}
	Outbox struct {
		QueueSize    int
		MaxWorkers   int
		MaxAttempts  int
		RetryDelay   time.Duration
		PollInterval time.Duration
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings (device SOS ingestion; consumer is disabled when unset)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	// Telegram settings (secondary alert channel)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if rl, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = rl
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Emergency defaults
	if lat, err := strconv.ParseFloat(os.Getenv("FALLBACK_LATITUDE"), 64); err == nil {
		cfg.Emergency.FallbackLatitude = lat
	}
	if lng, err := strconv.ParseFloat(os.Getenv("FALLBACK_LONGITUDE"), 64); err == nil {
		cfg.Emergency.FallbackLongitude = lng
	}
	if t, err := strconv.Atoi(os.Getenv("OP_TIMEOUT_SECONDS")); err == nil {
		cfg.Emergency.OpTimeout = time.Duration(t) * time.Second
	}

	// Outbox worker settings
	if qs, err := strconv.Atoi(os.Getenv("OUTBOX_QUEUE_SIZE")); err == nil {
		cfg.Outbox.QueueSize = qs
	}
	if mw, err := strconv.Atoi(os.Getenv("OUTBOX_MAX_WORKERS")); err == nil {
		cfg.Outbox.MaxWorkers = mw
	}
	if ma, err := strconv.Atoi(os.Getenv("OUTBOX_MAX_ATTEMPTS")); err == nil {
		cfg.Outbox.MaxAttempts = ma
	}
	if rd, err := strconv.Atoi(os.Getenv("OUTBOX_RETRY_DELAY_SECONDS")); err == nil {
		cfg.Outbox.RetryDelay = time.Duration(rd) * time.Second
	}
	if pi, err := strconv.Atoi(os.Getenv("OUTBOX_POLL_INTERVAL_SECONDS")); err == nil {
		cfg.Outbox.PollInterval = time.Duration(pi) * time.Second
	}

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	applyDefaults(&cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "device_sos"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "emergency-service"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "ResqPulse Alerts"
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 20
	}
	// Fallback point used when trigger input carries no usable coordinates.
	if cfg.Emergency.FallbackLatitude == 0 {
		cfg.Emergency.FallbackLatitude = 28.7041
	}
	if cfg.Emergency.FallbackLongitude == 0 {
		cfg.Emergency.FallbackLongitude = 77.1025
	}
	if cfg.Emergency.OpTimeout == 0 {
		cfg.Emergency.OpTimeout = 5 * time.Second
	}
	if cfg.Outbox.QueueSize == 0 {
		cfg.Outbox.QueueSize = 500
	}
	if cfg.Outbox.MaxWorkers == 0 {
		cfg.Outbox.MaxWorkers = 4
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 5
	}
	if cfg.Outbox.RetryDelay == 0 {
		cfg.Outbox.RetryDelay = 30 * time.Second
	}
	if cfg.Outbox.PollInterval == 0 {
		cfg.Outbox.PollInterval = 10 * time.Second
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

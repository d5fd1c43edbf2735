package config

import (
	"fmt"
	"os"
	"strconv"
)

// Mailer provider constants
const (
	ProviderSES  = "ses"
	ProviderSMTP = "smtp"
	ProviderLog  = "log"
	ProviderNone = "none"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (dispatch dedup guard; optional)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Mail transport selection: ses, smtp, log or none
	MailerProvider string

	// SMTP config for relay-based sending
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string // sender email address

	// AWS SES
	AWSRegion    string
	SESFromEmail string

	// SQS durable dispatch queue (optional; in-process pool when unset)
	SQSRegion   string
	SQSQueueURL string

	// Dispatch engine tuning
	DispatchWorkers     int // worker pool size for fan-in of notify events
	DispatchQueueSize   int // buffered events before Enqueue blocks
	SendTimeoutSeconds  int // bound on a single transport send
	BreakerMaxFailures  int // consecutive failures before the mail circuit opens
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "leadrelay",
		DBPassword: "",
		DBName:     "leadrelay",
		DBSSLMode:  "disable",

		// Redis defaults
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		MailerProvider: ProviderLog,

		// SMTP defaults
		SMTPHost: "localhost",
		SMTPPort: 587,
		SMTPFrom: "noreply@veloship.local",

		AWSRegion:    "us-east-1",
		SESFromEmail: "noreply@veloship.local",

		DispatchWorkers:    4,
		DispatchQueueSize:  256,
		SendTimeoutSeconds: 15,
		BreakerMaxFailures: 5,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	if provider := os.Getenv("MAILER_PROVIDER"); provider != "" {
		switch provider {
		case ProviderSES, ProviderSMTP, ProviderLog, ProviderNone:
			cfg.MailerProvider = provider
		default:
			return nil, fmt.Errorf("invalid MAILER_PROVIDER: %s (want ses, smtp, log or none)", provider)
		}
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.SMTPHost = host
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = p
	}

	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.SMTPUsername = user
	}

	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		cfg.SMTPPassword = pass
	}

	if from := os.Getenv("SMTP_FROM"); from != "" {
		cfg.SMTPFrom = from
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFromEmail = from
	}

	// SQS config
	if region := os.Getenv("SQS_REGION"); region != "" {
		cfg.SQSRegion = region
	} else {
		cfg.SQSRegion = cfg.AWSRegion
	}

	if url := os.Getenv("SQS_QUEUE_URL"); url != "" {
		cfg.SQSQueueURL = url
	}

	// Dispatch engine tuning
	if workers := os.Getenv("DISPATCH_WORKERS"); workers != "" {
		w, err := strconv.Atoi(workers)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid DISPATCH_WORKERS: %s", workers)
		}
		cfg.DispatchWorkers = w
	}

	if size := os.Getenv("DISPATCH_QUEUE_SIZE"); size != "" {
		s, err := strconv.Atoi(size)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid DISPATCH_QUEUE_SIZE: %s", size)
		}
		cfg.DispatchQueueSize = s
	}

	if timeout := os.Getenv("SEND_TIMEOUT_SECONDS"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil || t <= 0 {
			return nil, fmt.Errorf("invalid SEND_TIMEOUT_SECONDS: %s", timeout)
		}
		cfg.SendTimeoutSeconds = t
	}

	if failures := os.Getenv("BREAKER_MAX_FAILURES"); failures != "" {
		f, err := strconv.Atoi(failures)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid BREAKER_MAX_FAILURES: %s", failures)
		}
		cfg.BreakerMaxFailures = f
	}

	return cfg, nil
}

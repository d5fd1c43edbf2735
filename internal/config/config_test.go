package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Port)
	}
	if cfg.MailerProvider != ProviderLog {
		t.Errorf("default mailer provider = %q, want %q", cfg.MailerProvider, ProviderLog)
	}
	if cfg.DispatchWorkers != 4 {
		t.Errorf("default dispatch workers = %d, want 4", cfg.DispatchWorkers)
	}
	if cfg.SendTimeoutSeconds != 15 {
		t.Errorf("default send timeout = %d, want 15", cfg.SendTimeoutSeconds)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAILER_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "relay.veloship.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("SQS_QUEUE_URL", "https://sqs.eu-west-1.amazonaws.com/1/dispatch")
	t.Setenv("SQS_REGION", "eu-west-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.MailerProvider != ProviderSMTP {
		t.Errorf("mailer provider = %q, want smtp", cfg.MailerProvider)
	}
	if cfg.SMTPHost != "relay.veloship.com" || cfg.SMTPPort != 465 {
		t.Errorf("smtp relay = %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	}
	if cfg.DispatchWorkers != 8 {
		t.Errorf("dispatch workers = %d, want 8", cfg.DispatchWorkers)
	}
	if cfg.SQSQueueURL == "" || cfg.SQSRegion != "eu-west-1" {
		t.Errorf("sqs config = %q %q", cfg.SQSRegion, cfg.SQSQueueURL)
	}
}

func TestLoadSQSRegionDefaultsToAWSRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SQSRegion != "us-west-2" {
		t.Errorf("sqs region = %q, want us-west-2", cfg.SQSRegion)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "PORT", "not-a-number"},
		{"bad mailer provider", "MAILER_PROVIDER", "carrier-pigeon"},
		{"zero dispatch workers", "DISPATCH_WORKERS", "0"},
		{"bad smtp port", "SMTP_PORT", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

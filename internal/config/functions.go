package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// FunctionsConfig configures the callable functions unit. It is a separate
// deployable, so it carries only the messaging settings it needs.
type FunctionsConfig struct {
	Port            string        `envconfig:"PORT" default:"8081"`
	Environment     string        `envconfig:"ENV" default:"development"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	// Callers present storefront admin access tokens signed with this secret
	JWTSecret      string   `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"smtp"`
	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	FromEmail     string `envconfig:"FROM_EMAIL" default:"noreply@kusinadeamadeo.com"`
	FromName      string `envconfig:"FROM_NAME" default:"Kusina De Amadeo"`
	ReplyTo       string `envconfig:"REPLY_TO_EMAIL"`
	SiteURL       string `envconfig:"SITE_URL" default:"http://localhost:3000"`
	SMTPHost      string `envconfig:"SMTP_HOST"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername  string `envconfig:"SMTP_USER"`
	SMTPPassword  string `envconfig:"SMTP_PASS"`
	SMTPUseTLS    bool   `envconfig:"SMTP_USE_TLS" default:"false"`

	SMSProvider   string `envconfig:"SMS_PROVIDER" default:"log"`
	SMSAPIKey     string `envconfig:"SEMAPHORE_API_KEY"`
	SMSSenderName string `envconfig:"SMS_SENDER_NAME" default:"KUSINA"`
	SMSBaseURL    string `envconfig:"SEMAPHORE_BASE_URL" default:"https://api.semaphore.co/api/v4"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// LoadFunctions reads FUNCTIONS_* variables into a FunctionsConfig.
func LoadFunctions() (*FunctionsConfig, error) {
	_ = godotenv.Load()

	var cfg FunctionsConfig
	if err := envconfig.Process("functions", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process functions config: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("FUNCTIONS_JWT_SECRET must be at least 32 characters")
	}
	return &cfg, nil
}

// JWT returns the token settings used to verify callers.
func (f *FunctionsConfig) JWT() JWTConfig {
	return JWTConfig{Secret: f.JWTSecret}
}

// Email maps the functions settings onto the shared email configuration.
func (f *FunctionsConfig) Email() EmailConfig {
	return EmailConfig{
		Provider:     f.EmailProvider,
		APIKey:       f.ResendAPIKey,
		FromEmail:    f.FromEmail,
		FromName:     f.FromName,
		ReplyTo:      f.ReplyTo,
		BaseURL:      f.SiteURL,
		SMTPHost:     f.SMTPHost,
		SMTPPort:     f.SMTPPort,
		SMTPUsername: f.SMTPUsername,
		SMTPPassword: f.SMTPPassword,
		SMTPUseTLS:   f.SMTPUseTLS,
	}
}

// SMS maps the functions settings onto the shared SMS configuration.
func (f *FunctionsConfig) SMS() SMSConfig {
	return SMSConfig{
		Provider:   f.SMSProvider,
		APIKey:     f.SMSAPIKey,
		SenderName: f.SMSSenderName,
		BaseURL:    f.SMSBaseURL,
	}
}

// Logging maps the functions settings onto the shared logging configuration.
func (f *FunctionsConfig) Logging() LoggingConfig {
	return LoggingConfig{Level: f.LogLevel, Format: f.LogFormat}
}

// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/sirupsen/logrus"
)

const defaultResendURL = "https://api.resend.com"

// ErrNotConfigured is returned when the selected provider lacks credentials
var ErrNotConfigured = errors.New("email provider not configured")

// Service sends transactional emails through the configured provider
type Service struct {
	config    config.EmailConfig
	client    *http.Client
	logger    *logrus.Logger
	resendURL string
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig, logger *logrus.Logger) *Service {
	return &Service{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		resendURL: defaultResendURL,
	}
}

// Provider returns the configured provider name
func (s *Service) Provider() string {
	return s.config.Provider
}

// SendEmail validates and sends an email using the configured provider
func (s *Service) SendEmail(ctx context.Context, email *Email) error {
	if err := validate(email); err != nil {
		return err
	}

	var err error
	switch s.config.Provider {
	case "smtp":
		err = s.sendSMTPEmail(ctx, email)
	case "resend":
		err = s.sendResendEmail(ctx, email)
	case "log":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email (log provider)")
	default:
		err = fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"to":       email.To,
		"type":     email.Type,
		"provider": s.config.Provider,
	}).Debug("Email sent")
	return nil
}

// SendOrderConfirmationEmail sends the order confirmation email
func (s *Service) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.TemplateData = baseTemplateData(s.config.FromName, s.config.BaseURL, data.CustomerName)

	html, err := render(orderConfirmationTemplate, data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.To},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: html,
		Type:        EmailTypeOrderConfirmation,
	})
}

// SendOrderStatusUpdateEmail sends an order status update notification
func (s *Service) SendOrderStatusUpdateEmail(ctx context.Context, data OrderStatusUpdateData) error {
	data.TemplateData = baseTemplateData(s.config.FromName, s.config.BaseURL, data.CustomerName)

	html, err := render(orderStatusTemplate, data)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.To},
		Subject:     fmt.Sprintf("Order Update - %s", data.OrderNumber),
		HTMLContent: html,
		Type:        EmailTypeOrderStatusUpdate,
	})
}

// SendTestEmail checks provider connectivity and then sends a fixed test email
func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	if err := s.TestConnection(ctx); err != nil {
		return err
	}

	html, err := render(testTemplate, baseTemplateData(s.config.FromName, s.config.BaseURL, to))
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{to},
		Subject:     fmt.Sprintf("Test Email from %s", s.config.FromName),
		HTMLContent: html,
		Type:        EmailTypeTest,
	})
}

// TestConnection verifies the provider is reachable with the configured credentials
func (s *Service) TestConnection(ctx context.Context) error {
	switch s.config.Provider {
	case "smtp":
		return s.testSMTPConnection(ctx)
	case "resend":
		return s.testResendConnection(ctx)
	case "log":
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

func (s *Service) fromAddress() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

func validate(email *Email) error {
	if email == nil || len(email.To) == 0 {
		return apperrors.Validation("to", "at least one recipient is required")
	}
	for _, addr := range email.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return apperrors.Validation("to", "invalid email address %q", addr)
		}
	}
	if strings.TrimSpace(email.Subject) == "" {
		return apperrors.Validation("subject", "is required")
	}
	if email.HTMLContent == "" && email.TextContent == "" {
		return apperrors.Validation("html", "html or text content is required")
	}
	return nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

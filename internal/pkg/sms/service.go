// internal/pkg/sms/service.go
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/sirupsen/logrus"
)

// MaxMessageLength is the longest message accepted; longer texts are split
// into several parts by the gateway and billed per part.
const MaxMessageLength = 459

// ErrNotConfigured is returned when the selected provider lacks credentials
var ErrNotConfigured = errors.New("sms provider not configured")

var phonePattern = regexp.MustCompile(`^(\+?63|0)9\d{9}$`)

// Service sends SMS messages through the configured gateway
type Service struct {
	config config.SMSConfig
	client *http.Client
	logger *logrus.Logger
}

// NewService creates a new SMS service
func NewService(cfg config.SMSConfig, logger *logrus.Logger) *Service {
	return &Service{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// semaphoreMessage is one element of the Semaphore send response
type semaphoreMessage struct {
	MessageID int    `json:"message_id"`
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
}

// NormalizeNumber converts a Philippine mobile number to the 09XXXXXXXXX form
func NormalizeNumber(number string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(number))
	if !phonePattern.MatchString(cleaned) {
		return "", apperrors.Validation("to", "invalid mobile number %q", number)
	}
	return "0" + cleaned[len(cleaned)-10:], nil
}

// Send validates and sends message to number
func (s *Service) Send(ctx context.Context, number, message string) error {
	to, err := NormalizeNumber(number)
	if err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return apperrors.Validation("message", "is required")
	}
	if len(message) > MaxMessageLength {
		return apperrors.Validation("message", "must be at most %d characters", MaxMessageLength)
	}

	switch s.config.Provider {
	case "semaphore":
		err = s.sendSemaphore(ctx, to, message)
	case "log":
		s.logger.WithFields(logrus.Fields{
			"to":      to,
			"message": message,
		}).Info("SMS (log provider)")
	default:
		err = fmt.Errorf("unsupported sms provider: %s", s.config.Provider)
	}
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"to":       to,
		"provider": s.config.Provider,
	}).Debug("SMS sent")
	return nil
}

func (s *Service) sendSemaphore(ctx context.Context, to, message string) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("%w: missing Semaphore API key", ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("apikey", s.config.APIKey)
	form.Set("number", to)
	form.Set("message", message)
	if s.config.SenderName != "" {
		form.Set("sendername", s.config.SenderName)
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Semaphore request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Semaphore request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Semaphore API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var messages []semaphoreMessage
	if err := json.Unmarshal(body, &messages); err != nil {
		return fmt.Errorf("failed to decode Semaphore response: %w", err)
	}
	for _, m := range messages {
		if strings.EqualFold(m.Status, "failed") {
			return fmt.Errorf("Semaphore rejected message %d to %s", m.MessageID, m.Recipient)
		}
	}
	return nil
}

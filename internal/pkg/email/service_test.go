package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResendService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewService(config.EmailConfig{
		Provider:  "resend",
		APIKey:    "re_test",
		FromEmail: "noreply@kusinadeamadeo.com",
		FromName:  "Kusina De Amadeo",
		BaseURL:   "https://kusinadeamadeo.com",
	}, logger.Discard())
	svc.resendURL = srv.URL
	return svc
}

func TestSendEmailViaResend(t *testing.T) {
	var got ResendEmailRequest
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})

	err := svc.SendEmail(context.Background(), &Email{
		To:          []string{"juan@example.com"},
		Subject:     "Hello",
		HTMLContent: "<p>Hi</p>",
		Type:        EmailTypeDirect,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kusina De Amadeo <noreply@kusinadeamadeo.com>", got.From)
	assert.Equal(t, []string{"juan@example.com"}, got.To)
	assert.Equal(t, "<p>Hi</p>", got.HTML)
}

func TestSendEmailProviderFailure(t *testing.T) {
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	err := svc.SendEmail(context.Background(), &Email{
		To:          []string{"juan@example.com"},
		Subject:     "Hello",
		TextContent: "Hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSendEmailValidation(t *testing.T) {
	svc := NewService(config.EmailConfig{Provider: "log"}, logger.Discard())
	ctx := context.Background()

	tests := []struct {
		name  string
		email *Email
	}{
		{"no recipients", &Email{Subject: "x", TextContent: "x"}},
		{"bad address", &Email{To: []string{"not-an-email"}, Subject: "x", TextContent: "x"}},
		{"no subject", &Email{To: []string{"a@b.co"}, TextContent: "x"}},
		{"no body", &Email{To: []string{"a@b.co"}, Subject: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperrors.IsValidation(svc.SendEmail(ctx, tt.email)))
		})
	}
}

func TestOrderConfirmationRendersItems(t *testing.T) {
	var got ResendEmailRequest
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := svc.SendOrderConfirmationEmail(context.Background(), OrderConfirmationData{
		To:            "juan@example.com",
		OrderNumber:   "KDA-1700000000000-ABC123",
		OrderType:     "delivery",
		PaymentMethod: "cod",
		Total:         "260.00",
		TemplateData:  TemplateData{CustomerName: "Juan"},
		Items: []OrderItem{
			{Name: "Tapsilog", Quantity: 2, Price: "110.00", Subtotal: "220.00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Order Confirmation - KDA-1700000000000-ABC123", got.Subject)
	assert.Contains(t, got.HTML, "Tapsilog")
	assert.Contains(t, got.HTML, "Hello Juan")
	assert.Contains(t, got.HTML, "PHP 260.00")
}

func TestUnsupportedProvider(t *testing.T) {
	svc := NewService(config.EmailConfig{Provider: "pigeon"}, logger.Discard())
	err := svc.TestConnection(context.Background())
	require.Error(t, err)

	err = svc.SendEmail(context.Background(), &Email{To: []string{"a@b.co"}, Subject: "x", TextContent: "x"})
	assert.Contains(t, err.Error(), "unsupported email provider")
}

func TestResendNotConfigured(t *testing.T) {
	svc := NewService(config.EmailConfig{Provider: "resend"}, logger.Discard())
	err := svc.TestConnection(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

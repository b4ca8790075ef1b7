package callable

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/notification"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Mailer sends direct and test emails
type Mailer interface {
	SendEmail(ctx context.Context, e *email.Email) error
	SendTestEmail(ctx context.Context, to string) error
}

// Texter sends a single SMS
type Texter interface {
	Send(ctx context.Context, number, message string) error
}

// Notifier sends an order status message to a contact
type Notifier interface {
	Notify(ctx context.Context, req notification.Request) (notification.Result, error)
}

// Functions exposes the messaging functions
type Functions struct {
	mailer   Mailer
	texter   Texter
	notifier Notifier
	logger   *logrus.Logger
}

// New creates the function set
func New(mailer Mailer, texter Texter, notifier Notifier, logger *logrus.Logger) *Functions {
	return &Functions{mailer: mailer, texter: texter, notifier: notifier, logger: logger}
}

// Register mounts every function under its name behind an admin token check
func (f *Functions) Register(r gin.IRouter, tokens TokenVerifier) {
	g := r.Group("", RequireAdmin(tokens, f.logger))
	g.POST("/sendEmail", Handle("sendEmail", f.SendEmail, f.logger))
	g.POST("/sendSMS", Handle("sendSMS", f.SendSMS, f.logger))
	g.POST("/sendNotification", Handle("sendNotification", f.SendNotification, f.logger))
	g.POST("/testEmail", Handle("testEmail", f.TestEmail, f.logger))
}

// Ack is the result of a plain send
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sendEmailData struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// SendEmail sends a caller-composed email
func (f *Functions) SendEmail(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var in sendEmailData
	if err := decode(data, &in); err != nil {
		return nil, err
	}
	to, err := recipient(in.To)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Subject) == "" {
		return nil, Errorf(StatusInvalidArgument, "subject is required")
	}
	if in.HTML == "" && in.Text == "" {
		return nil, Errorf(StatusInvalidArgument, "html or text content is required")
	}

	err = f.mailer.SendEmail(ctx, &email.Email{
		To:          []string{to},
		Subject:     in.Subject,
		HTMLContent: in.HTML,
		TextContent: in.Text,
		Type:        email.EmailTypeDirect,
	})
	if err != nil {
		return nil, err
	}
	return Ack{Success: true, Message: "Email sent successfully"}, nil
}

type sendSMSData struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendSMS sends a caller-composed text message
func (f *Functions) SendSMS(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var in sendSMSData
	if err := decode(data, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.To) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, Errorf(StatusInvalidArgument, "to and message are required")
	}
	if err := f.texter.Send(ctx, in.To, in.Message); err != nil {
		return nil, err
	}
	return Ack{Success: true, Message: "SMS sent successfully"}, nil
}

type sendNotificationData struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	CustomerName string `json:"customerName"`
	OrderNumber  string `json:"orderNumber"`
	Status       string `json:"status"`
}

// NotificationResult reports the outcome per channel
type NotificationResult struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	SMS     string `json:"sms"`
}

// SendNotification sends an order status message by email and SMS
func (f *Functions) SendNotification(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var in sendNotificationData
	if err := decode(data, &in); err != nil {
		return nil, err
	}
	status := order.OrderStatus(strings.TrimSpace(in.Status))
	if status != "" && !status.IsValid() {
		return nil, Errorf(StatusInvalidArgument, "unknown status %q", in.Status)
	}

	res, err := f.notifier.Notify(ctx, notification.Request{
		Email:        in.Email,
		Phone:        in.Phone,
		CustomerName: in.CustomerName,
		OrderNumber:  strings.TrimSpace(in.OrderNumber),
		Status:       status,
	})
	if err != nil {
		return nil, err
	}
	return NotificationResult{Success: res.Success(), Email: res.Email, SMS: res.SMS}, nil
}

type testEmailData struct {
	To string `json:"to"`
}

// TestEmail checks the provider and sends a fixed test message
func (f *Functions) TestEmail(ctx context.Context, data json.RawMessage) (interface{}, error) {
	var in testEmailData
	if err := decode(data, &in); err != nil {
		return nil, err
	}
	to, err := recipient(in.To)
	if err != nil {
		return nil, err
	}
	if err := f.mailer.SendTestEmail(ctx, to); err != nil {
		return nil, err
	}
	return Ack{Success: true, Message: "Test email sent to " + to}, nil
}

func recipient(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", Errorf(StatusInvalidArgument, "to is required")
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return "", Errorf(StatusInvalidArgument, "invalid email address %q", to)
	}
	return addr.Address, nil
}

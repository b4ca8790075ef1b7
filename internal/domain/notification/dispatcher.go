// Package notification delivers order events to customers over email, SMS
// and the in-app inbox.
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/email"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultDispatchTimeout = 30 * time.Second

// Channel outcomes reported by Notify
const (
	ChannelSent    = "sent"
	ChannelFailed  = "failed"
	ChannelSkipped = "skipped"
)

// EmailSender is the subset of the email service the dispatcher uses
type EmailSender interface {
	SendEmail(ctx context.Context, e *email.Email) error
	SendOrderConfirmationEmail(ctx context.Context, data email.OrderConfirmationData) error
	SendOrderStatusUpdateEmail(ctx context.Context, data email.OrderStatusUpdateData) error
}

// SMSSender sends a text message to a mobile number
type SMSSender interface {
	Send(ctx context.Context, number, message string) error
}

// Request describes a status notification to a contact
type Request struct {
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	CustomerName string            `json:"customerName"`
	OrderNumber  string            `json:"orderNumber"`
	Status       order.OrderStatus `json:"status"`
}

// Result reports the outcome per channel
type Result struct {
	Email string `json:"email"`
	SMS   string `json:"sms"`
}

// Success reports whether at least one channel delivered
func (r Result) Success() bool {
	return r.Email == ChannelSent || r.SMS == ChannelSent
}

// Dispatcher sends order notifications. Delivery is best effort: failures
// are logged and never reach the order mutation that triggered them.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	inbox     *Inbox
	storeName string
	timeout   time.Duration
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. inbox may be nil.
func NewDispatcher(emailSender EmailSender, smsSender SMSSender, inbox *Inbox, storeName string, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{
		email:     emailSender,
		sms:       smsSender,
		inbox:     inbox,
		storeName: storeName,
		timeout:   timeout,
		logger:    logger,
	}
}

// OrderCreated sends the confirmation in the background
func (d *Dispatcher) OrderCreated(ctx context.Context, o *order.Order) {
	d.background(ctx, o, func(ctx context.Context) {
		d.deliver(ctx, o, o.Status, true)
	})
}

// OrderStatusChanged sends the status update in the background
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, o *order.Order, status order.OrderStatus) {
	d.background(ctx, o, func(ctx context.Context) {
		d.deliver(ctx, o, status, false)
	})
}

// NotifyOrder sends a status notification for a stored order and waits for it
func (d *Dispatcher) NotifyOrder(ctx context.Context, o *order.Order, status order.OrderStatus) Result {
	return d.deliver(ctx, o, status, false)
}

// Wait blocks until every background dispatch has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify sends a status message to the given contact on both channels.
// Channels without an address are skipped.
func (d *Dispatcher) Notify(ctx context.Context, req Request) (Result, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Email == "" && req.Phone == "" {
		return Result{}, apperrors.Validation("email", "email or phone is required")
	}
	if req.OrderNumber == "" {
		return Result{}, apperrors.Validation("orderNumber", "is required")
	}
	if req.Status == "" {
		return Result{}, apperrors.Validation("status", "is required")
	}

	result := Result{Email: ChannelSkipped, SMS: ChannelSkipped}
	var mu sync.Mutex
	var g errgroup.Group

	if req.Email != "" {
		g.Go(func() error {
			err := d.email.SendOrderStatusUpdateEmail(ctx, email.OrderStatusUpdateData{
				TemplateData:  email.TemplateData{CustomerName: req.CustomerName},
				To:            req.Email,
				OrderNumber:   req.OrderNumber,
				Status:        string(req.Status),
				StatusMessage: StatusMessage(req.Status),
			})
			mu.Lock()
			result.Email = outcome(err)
			mu.Unlock()
			return tag("email", err)
		})
	}
	if req.Phone != "" {
		g.Go(func() error {
			err := d.sms.Send(ctx, req.Phone, smsText(d.storeName, req.OrderNumber, req.Status))
			mu.Lock()
			result.SMS = outcome(err)
			mu.Unlock()
			return tag("sms", err)
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.WithFields(logrus.Fields{
			"order_number": req.OrderNumber,
			"status":       req.Status,
		}).WithError(err).Warn("Notification channel failed")
	}
	return result, nil
}

// SendEmail sends a direct email and reports provider failures
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, html, text string) error {
	return d.email.SendEmail(ctx, &email.Email{
		To:          []string{strings.TrimSpace(to)},
		Subject:     subject,
		HTMLContent: html,
		TextContent: text,
		Type:        email.EmailTypeDirect,
	})
}

// SendSMS sends a direct text message and reports provider failures
func (d *Dispatcher) SendSMS(ctx context.Context, to, message string) error {
	return d.sms.Send(ctx, to, message)
}

// background runs fn detached from the request, bounded by the dispatch timeout
func (d *Dispatcher) background(ctx context.Context, o *order.Order, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithFields(logrus.Fields{
					"order_id": o.ID,
					"panic":    r,
				}).Error("Notification dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, o *order.Order, status order.OrderStatus, created bool) Result {
	result := Result{Email: ChannelSkipped, SMS: ChannelSkipped}
	var mu sync.Mutex
	var g errgroup.Group

	if o.Contact.Email != "" {
		g.Go(func() error {
			var err error
			if created {
				err = d.email.SendOrderConfirmationEmail(ctx, confirmationData(o))
			} else {
				err = d.email.SendOrderStatusUpdateEmail(ctx, email.OrderStatusUpdateData{
					TemplateData:  email.TemplateData{CustomerName: o.Contact.Name},
					To:            o.Contact.Email,
					OrderNumber:   o.OrderNumber,
					Status:        string(status),
					StatusMessage: StatusMessage(status),
				})
			}
			mu.Lock()
			result.Email = outcome(err)
			mu.Unlock()
			return tag("email", err)
		})
	}
	if o.Contact.Phone != "" {
		g.Go(func() error {
			err := d.sms.Send(ctx, o.Contact.Phone, smsText(d.storeName, o.OrderNumber, status))
			mu.Lock()
			result.SMS = outcome(err)
			mu.Unlock()
			return tag("sms", err)
		})
	}

	fields := logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"status":       status,
	}
	if err := g.Wait(); err != nil {
		d.logger.WithFields(fields).WithError(err).Warn("Order notification channel failed")
	}

	if d.inbox != nil {
		_, err := d.inbox.Push(ctx, o.UserID, Entry{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Message:     StatusMessage(status),
			Status:      string(status),
		})
		if err != nil {
			d.logger.WithFields(fields).WithError(err).Warn("Failed to record in-app notification")
		}
	}

	d.logger.WithFields(fields).WithFields(logrus.Fields{
		"email": result.Email,
		"sms":   result.SMS,
	}).Info("Order notification dispatched")
	return result
}

func confirmationData(o *order.Order) email.OrderConfirmationData {
	items := make([]email.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, email.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Subtotal: item.Subtotal.StringFixed(2),
		})
	}
	return email.OrderConfirmationData{
		TemplateData:  email.TemplateData{CustomerName: o.Contact.Name},
		To:            o.Contact.Email,
		OrderNumber:   o.OrderNumber,
		OrderType:     string(o.OrderType),
		PaymentMethod: string(o.PaymentMethod),
		Total:         o.TotalAmount.StringFixed(2),
		Items:         items,
		DeliveryDate:  o.DeliveryDate,
		DeliveryTime:  o.DeliveryTime,
	}
}

func outcome(err error) string {
	if err != nil {
		return ChannelFailed
	}
	return ChannelSent
}

type channelError struct {
	channel string
	err     error
}

func (e *channelError) Error() string { return e.channel + ": " + e.err.Error() }

func (e *channelError) Unwrap() error { return e.err }

func tag(channel string, err error) error {
	if err == nil {
		return nil
	}
	return &channelError{channel: channel, err: err}
}

var _ order.Notifier = (*Dispatcher)(nil)

// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeOrderStatusUpdate EmailType = "order_status_update"
	EmailTypeDirect            EmailType = "direct"
	EmailTypeTest              EmailType = "test"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content,omitempty"`
	Type        EmailType `json:"type"`
}

// TemplateData contains common data for all email templates
type TemplateData struct {
	SiteName     string
	SiteURL      string
	CustomerName string
	Year         int
}

// OrderConfirmationData contains data for the order confirmation email
type OrderConfirmationData struct {
	TemplateData
	To            string
	OrderNumber   string
	OrderType     string
	PaymentMethod string
	Total         string
	Items         []OrderItem
	DeliveryDate  string
	DeliveryTime  string
}

// OrderItem represents a line in the order email
type OrderItem struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

// OrderStatusUpdateData contains data for order status updates
type OrderStatusUpdateData struct {
	TemplateData
	To            string
	OrderNumber   string
	Status        string
	StatusMessage string
}

func baseTemplateData(siteName, siteURL, customerName string) TemplateData {
	return TemplateData{
		SiteName:     siteName,
		SiteURL:      siteURL,
		CustomerName: customerName,
		Year:         time.Now().Year(),
	}
}

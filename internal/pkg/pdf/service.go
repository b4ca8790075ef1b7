// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Service renders order receipts
type Service struct {
	store    config.AppConfig
	location *time.Location
	now      func() time.Time
}

// NewService creates a new PDF service. Receipt dates are printed in loc.
func NewService(cfg config.AppConfig, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    cfg,
		location: loc,
		now:      time.Now,
	}
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	ReceiptNumber string
	IssuedAt      string
	OrderedAt     string
	Order         *order.Order
	Store         StoreInfo
	Paid          bool
}

// StoreInfo is the receipt letterhead
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// GenerateReceipt converts the order receipt to PDF. It needs the
// wkhtmltopdf binary on PATH.
func (s *Service) GenerateReceipt(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderReceiptHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA5)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(8)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderReceiptHTML renders the receipt page that GenerateReceipt prints
func (s *Service) RenderReceiptHTML(o *order.Order) (string, error) {
	if o == nil {
		return "", fmt.Errorf("order is required")
	}

	data := ReceiptData{
		ReceiptNumber: "OR-" + o.OrderNumber,
		IssuedAt:      s.now().In(s.location).Format("January 2, 2006 3:04 PM"),
		OrderedAt:     o.CreatedAt.In(s.location).Format("January 2, 2006 3:04 PM"),
		Order:         o,
		Store: StoreInfo{
			Name:    s.store.StoreName,
			Address: s.store.StoreAddress,
			Phone:   s.store.StorePhone,
			Email:   s.store.StoreEmail,
			Website: s.store.BaseURL,
		},
		Paid: o.IsPaid(),
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func peso(d decimal.Decimal) string {
	return "PHP " + d.StringFixed(2)
}

func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"peso": peso,
	"humanize": func(v interface{}) string {
		return humanize(fmt.Sprint(v))
	},
	"upper": func(v interface{}) string {
		return strings.ToUpper(fmt.Sprint(v))
	},
}).Parse(receiptTemplate))

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.ReceiptNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { border-bottom: 2px solid #eee; padding-bottom: 16px; margin-bottom: 20px; }
        .store-name { font-size: 24px; font-weight: bold; color: #b45309; }
        .receipt-title { font-size: 18px; font-weight: bold; margin-top: 12px; }
        .muted { color: #666; font-size: 12px; }
        table { width: 100%; border-collapse: collapse; margin: 16px 0; }
        th { background: #f8f9fa; text-align: left; padding: 8px; border-bottom: 1px solid #ddd; font-size: 12px; }
        td { padding: 8px; border-bottom: 1px solid #eee; font-size: 12px; }
        .right { text-align: right; }
        .total { font-size: 16px; font-weight: bold; }
        .badge { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 11px; }
        .paid { background: #dcfce7; color: #166534; }
        .unpaid { background: #fef3c7; color: #92400e; }
        .footer { margin-top: 30px; text-align: center; color: #666; font-size: 11px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="store-name">{{.Store.Name}}</div>
        {{if .Store.Address}}<div class="muted">{{.Store.Address}}</div>{{end}}
        {{if .Store.Phone}}<div class="muted">{{.Store.Phone}}</div>{{end}}
        {{if .Store.Email}}<div class="muted">{{.Store.Email}}</div>{{end}}
        <div class="receipt-title">Official Receipt {{.ReceiptNumber}}</div>
        <div class="muted">Issued {{.IssuedAt}}</div>
    </div>

    <div>
        <div><strong>Order:</strong> {{.Order.OrderNumber}}</div>
        <div><strong>Placed:</strong> {{.OrderedAt}}</div>
        <div><strong>Customer:</strong> {{.Order.Contact.Name}}</div>
        {{if .Order.Contact.Phone}}<div><strong>Phone:</strong> {{.Order.Contact.Phone}}</div>{{end}}
        <div><strong>Type:</strong> {{humanize .Order.OrderType}}{{if .Order.DeliveryDate}} on {{.Order.DeliveryDate}} {{.Order.DeliveryTime}}{{end}}</div>
        {{if .Order.ShippingAddress.Line1}}
        <div><strong>Deliver to:</strong> {{.Order.ShippingAddress.Line1}}{{if .Order.ShippingAddress.Barangay}}, {{.Order.ShippingAddress.Barangay}}{{end}}{{if .Order.ShippingAddress.City}}, {{.Order.ShippingAddress.City}}{{end}}</div>
        {{end}}
        <div><strong>Payment:</strong> {{upper .Order.PaymentMethod}}
            {{if .Paid}}<span class="badge paid">PAID</span>{{else}}<span class="badge unpaid">{{humanize .Order.PaymentStatus}}</span>{{end}}
        </div>
    </div>

    <table>
        <thead>
            <tr><th>Item</th><th class="right">Qty</th><th class="right">Price</th><th class="right">Amount</th></tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td>{{.Name}}</td>
                <td class="right">{{.Quantity}}</td>
                <td class="right">{{peso .Price}}</td>
                <td class="right">{{peso .Subtotal}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="right total">Total: {{peso .Order.TotalAmount}}</div>

    {{if .Order.SpecialInstructions}}
    <div class="muted"><strong>Notes:</strong> {{.Order.SpecialInstructions}}</div>
    {{end}}

    <div class="footer">
        Salamat po! Thank you for ordering from {{.Store.Name}}.
        {{if .Store.Website}}<br>{{.Store.Website}}{{end}}
    </div>
</body>
</html>
`

package email

import "html/template"

const layoutHeader = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #fdf6ec;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #b45309;">{{.SiteName}}</h1>
<p>Hello {{.CustomerName}},</p>
`

const layoutFooter = `<hr>
<p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. Salamat po!</p>
</div>
</body>
</html>`

var orderConfirmationTemplate = template.Must(template.New("order_confirmation").Parse(layoutHeader + `
<p>We received your order <strong>{{.OrderNumber}}</strong>.</p>
<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">PHP {{.Price}}</td><td align="right">PHP {{.Subtotal}}</td></tr>
{{end}}</table>
<p><strong>Total: PHP {{.Total}}</strong></p>
<p>Order type: {{.OrderType}}<br>Payment method: {{.PaymentMethod}}</p>
{{if .DeliveryDate}}<p>Scheduled for {{.DeliveryDate}} {{.DeliveryTime}}</p>{{end}}
<p><a href="{{.SiteURL}}/orders">Track your order</a></p>
` + layoutFooter))

var orderStatusTemplate = template.Must(template.New("order_status_update").Parse(layoutHeader + `
<p>{{.StatusMessage}}</p>
<p>Order number: <strong>{{.OrderNumber}}</strong><br>Status: {{.Status}}</p>
<p><a href="{{.SiteURL}}/orders">View your order</a></p>
` + layoutFooter))

var testTemplate = template.Must(template.New("test").Parse(layoutHeader + `
<p>This is a test email. Your email provider is configured correctly.</p>
` + layoutFooter))

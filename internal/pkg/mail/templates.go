package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names accepted by Mailer.Send. An unknown name is a programming
// error surfaced in tests, not a runtime condition to tolerate.
const (
	TemplateOrderConfirmation   = "orderConfirmation"
	TemplateBookingConfirmation = "bookingConfirmation"
	TemplateWelcome             = "welcome"
	TemplatePaymentConfirmation = "paymentConfirmation"
	TemplateAdminAlert          = "adminAlert"
	TemplateQuoteConfirmation   = "quoteConfirmation"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]emailTemplate{
	TemplateOrderConfirmation: mustTemplate(
		"Order Confirmation #{{.ID}}",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>Order Confirmation</h2>
  <p>Hi {{or .CustomerName "Guest"}},</p>
  <p>Thank you for your order! Here are the details:</p>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 15px 0;">
    <strong>Order ID:</strong> {{.ID}}<br/>
    <strong>Status:</strong> {{or .Status "pending"}}<br/>
    <strong>Total:</strong> {{.Total}}
  </div>
  <p>We'll notify you when your order is being prepared.</p>
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Customer Service</p>
</div>`),

	TemplateBookingConfirmation: mustTemplate(
		"{{.TypeTitle}} Booking Confirmation #{{.ID}}",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>{{.TypeTitle}} Booking Confirmation</h2>
  <p>Hi {{.CustomerName}},</p>
  <p>Your {{.Type}} booking has been received!</p>
  <div style="background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 15px 0;">
    <strong>Booking ID:</strong> {{.ID}}<br/>
    <strong>Type:</strong> {{.Type}}<br/>
    <strong>Total Cost:</strong> {{.Total}}
  </div>
  <p>Please arrive 30 minutes before your scheduled time.</p>
  <p>If you have any questions, contact us at support@megapark-hotel.com</p>
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Reservations</p>
</div>`),

	TemplateWelcome: mustTemplate(
		"Welcome to MegaPark Hotel",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>Welcome, {{or .Name .Email}}!</h2>
  <p>Your account has been created. You can now book rooms, reserve event halls
  and order from our restaurant online.</p>
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Guest Services</p>
</div>`),

	TemplatePaymentConfirmation: mustTemplate(
		"Payment Received for #{{.ID}}",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>Payment Confirmed</h2>
  <p>Hi {{or .CustomerName "Guest"}},</p>
  <p>We received your payment of {{.Total}} for {{.ID}}. Thank you!</p>
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Billing</p>
</div>`),

	TemplateAdminAlert: mustTemplate(
		"[ADMIN ALERT] {{.Subject}}",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2 style="color: #d9534f;">Admin Alert</h2>
  <p><strong>{{.Subject}}</strong></p>
  <p>{{.Message}}</p>
  {{if .Details}}<div style="background: #f5f5f5; padding: 15px; border-radius: 5px; margin: 15px 0;">
    {{range $key, $value := .Details}}<p><strong>{{$key}}:</strong> {{$value}}</p>{{end}}
  </div>{{end}}
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Automated Alert System</p>
</div>`),

	TemplateQuoteConfirmation: mustTemplate(
		"Hall Quote Request Received",
		`<div style="font-family: Arial, sans-serif; max-width: 600px;">
  <h2>Thank You! Quote Request Received</h2>
  <p>Hi {{.CustomerName}},</p>
  <p>We received your hall quote request for your {{.EventType}} event on {{.EventDate}}.</p>
  <ul>
    <li>Event Type: {{.EventType}}</li>
    <li>Expected Guests: {{.GuestCount}}</li>
    <li>Event Date: {{.EventDate}}</li>
  </ul>
  <p>Our sales team will review your request and send you a detailed quote within 24 hours.</p>
  <p><strong>Phone:</strong> {{.AdminPhone}}<br/><strong>Email:</strong> {{.SalesEmail}}</p>
  <hr/>
  <p style="color: #666; font-size: 12px;">MegaPark Hotel | Events &amp; Functions</p>
</div>`),
}

func mustTemplate(subject, body string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// Render resolves a template by name and renders subject and HTML body.
func Render(templateName string, data any) (string, string, error) {
	tpl, ok := templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template: %q", templateName)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject for %q: %w", templateName, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body for %q: %w", templateName, err)
	}
	return subject.String(), body.String(), nil
}

// FormatAmount renders integer minor units as a major-unit money string for
// template data.
func FormatAmount(cents int64, currency string) string {
	symbol := "$"
	if currency == "kes" || currency == "KES" {
		symbol = "KES "
	}
	return fmt.Sprintf("%s%d.%02d", symbol, cents/100, cents%100)
}

package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

const defaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// Result reports a send attempt. Notification failures never propagate as
// errors to the primary transaction; callers log and move on.
type Result struct {
	Sent     bool
	Provider string
	Reason   string
}

// Mailer renders templated transactional email and delivers it through a
// best-effort provider chain: SendGrid HTTP API, then SMTP, then a dev inbox
// that captures messages in memory when neither is configured.
type Mailer struct {
	SendGridKey string
	SendGridURL string
	SMTPHost    string
	SMTPPort    string
	SMTPUser    string
	SMTPPass    string
	Sender      string

	HTTPClient *http.Client

	// retryDelay separates the single retry on a transient provider failure.
	retryDelay time.Duration

	mu       sync.Mutex
	captured []CapturedMessage
}

// CapturedMessage is a message held by the dev inbox.
type CapturedMessage struct {
	To       string
	Template string
	Subject  string
	Body     string
}

func NewMailerFromEnv() *Mailer {
	sender := env.GetEnv("EMAIL_FROM", "")
	if sender == "" {
		sender = "noreply@megapark-hotel.com"
	}
	return &Mailer{
		SendGridKey: strings.TrimSpace(env.GetEnv("SENDGRID_API_KEY", "")),
		SendGridURL: env.GetEnv("SENDGRID_API_URL", defaultSendGridURL),
		SMTPHost:    env.GetEnv("SMTP_HOST", ""),
		SMTPPort:    env.GetEnv("SMTP_PORT", "587"),
		SMTPUser:    env.GetEnv("SMTP_USERNAME", ""),
		SMTPPass:    env.GetEnv("SMTP_PASSWORD", ""),
		Sender:      sender,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelay: 500 * time.Millisecond,
	}
}

// Send renders the named template and walks the provider chain. It never
// panics and never returns an error; failure is reported in the Result.
func (m *Mailer) Send(to, templateName string, data any) Result {
	if strings.TrimSpace(to) == "" {
		return Result{Sent: false, Reason: "no recipient"}
	}

	subject, body, err := Render(templateName, data)
	if err != nil {
		// Unknown template or bad data binding: programming error class.
		log.Errorf("[Mail] render failed: %v", err)
		return Result{Sent: false, Reason: err.Error()}
	}

	if m.SendGridKey != "" {
		if err := m.withRetry(func() error { return m.sendViaSendGrid(to, subject, body) }); err == nil {
			log.Infof("[Mail] sent %s to %s via sendgrid", templateName, to)
			return Result{Sent: true, Provider: "sendgrid"}
		} else {
			log.Warnf("[Mail] sendgrid send failed, falling back: %v", err)
		}
	}

	if m.SMTPHost != "" {
		if err := m.withRetry(func() error { return m.sendViaSMTP(to, subject, body) }); err == nil {
			log.Infof("[Mail] sent %s to %s via smtp", templateName, to)
			return Result{Sent: true, Provider: "smtp"}
		} else {
			log.Warnf("[Mail] smtp send failed, falling back: %v", err)
		}
	}

	// Dev inbox: nothing configured (or everything failed). Capture so local
	// flows and tests can observe deliveries.
	m.mu.Lock()
	m.captured = append(m.captured, CapturedMessage{To: to, Template: templateName, Subject: subject, Body: body})
	m.mu.Unlock()
	log.Infof("[Mail] captured %s to %s in dev inbox", templateName, to)
	return Result{Sent: true, Provider: "dev"}
}

// Captured returns a copy of the dev inbox contents.
func (m *Mailer) Captured() []CapturedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedMessage, len(m.captured))
	copy(out, m.captured)
	return out
}

func (m *Mailer) withRetry(send func() error) error {
	err := send()
	if err == nil {
		return nil
	}
	time.Sleep(m.retryDelay)
	return send()
}

func (m *Mailer) sendViaSendGrid(to, subject, body string) error {
	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": m.Sender},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": body},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, m.SendGridURL, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.SendGridKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid: status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}

func (m *Mailer) sendViaSMTP(to, subject, body string) error {
	var auth smtp.Auth
	if m.SMTPUser != "" && m.SMTPPass != "" {
		auth = smtp.PlainAuth("", m.SMTPUser, m.SMTPPass, m.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%s", m.SMTPHost, m.SMTPPort)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.Sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	return smtp.SendMail(addr, auth, m.Sender, []string{to}, msg)
}

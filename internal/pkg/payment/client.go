package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.stripe.com"

// Client talks to the card payment provider. With an empty SecretKey it runs
// in mock mode: intents are fabricated deterministically and held in memory so
// the rest of the system (and the test suite) works without live credentials.
type Client struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string

	HTTPClient *http.Client

	mu   sync.Mutex
	mock map[string]*Intent
}

// NewClientFromEnv builds a client from STRIPE_SECRET_KEY / STRIPE_WEBHOOK_SECRET.
// Absence of the secret key selects mock mode.
func NewClientFromEnv() *Client {
	c := &Client{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		APIBaseURL:    strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		mock: make(map[string]*Intent),
	}
	if c.SecretKey != "" && c.WebhookSecret == "" {
		log.Warn("[Payment] live secret key set without webhook secret, webhook signatures will not be verified")
	}
	return c
}

// MockMode reports whether the client fabricates intents instead of calling
// the provider.
func (c *Client) MockMode() bool {
	return c.SecretKey == ""
}

// CreateIntent creates a payment intent for the given amount, attaching the
// booking/order id as metadata for later reconciliation.
func (c *Client) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}

	if c.MockMode() {
		log.Warn("[Payment] provider not configured, returning mock intent")
		return c.createMockIntent(p), nil
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(p.AmountCents, 10))
	form.Set("currency", p.Currency)
	form.Add("payment_method_types[]", "card")
	if p.Description != "" {
		form.Set("description", p.Description)
	}
	if p.BookingID != "" {
		form.Set("metadata[bookingId]", p.BookingID)
	}
	if p.OrderID != "" {
		form.Set("metadata[orderId]", p.OrderID)
	}
	if p.CustomerName != "" {
		form.Set("metadata[customerName]", p.CustomerName)
	}
	if p.CustomerEmail != "" {
		form.Set("metadata[customerEmail]", p.CustomerEmail)
		form.Set("receipt_email", p.CustomerEmail)
	}

	var out providerIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form, &out); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

// ConfirmIntent drives an intent toward succeeded (or requires_action / a
// terminal failure) using the given payment method.
func (c *Client) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if c.MockMode() {
		log.Warn("[Payment] provider not configured, returning mock confirmation")
		return c.confirmMockIntent(intentID), nil
	}

	form := url.Values{}
	form.Set("payment_method", paymentMethodID)

	var out providerIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/confirm"
	if err := c.do(ctx, http.MethodPost, path, form, &out); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

// GetIntent retrieves the current provider state of an intent.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	if c.MockMode() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if intent, ok := c.mock[intentID]; ok {
			copied := *intent
			return &copied, nil
		}
		return nil, ErrIntentNotFound
	}

	var out providerIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

func (c *Client) createMockIntent(p CreateIntentParams) *Intent {
	id := "pi_test_" + randomHex(12)
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_test",
		Amount:       p.AmountCents,
		Currency:     p.Currency,
		Status:       IntentStatusRequiresPaymentMethod,
		BookingID:    p.BookingID,
		OrderID:      p.OrderID,
	}

	c.mu.Lock()
	if c.mock == nil {
		c.mock = make(map[string]*Intent)
	}
	c.mock[id] = intent
	c.mu.Unlock()

	copied := *intent
	return &copied
}

func (c *Client) confirmMockIntent(intentID string) *Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mock == nil {
		c.mock = make(map[string]*Intent)
	}

	intent, ok := c.mock[intentID]
	if !ok {
		// Unknown ids still confirm in mock mode, matching the historical
		// behavior clients depend on in development.
		intent = &Intent{
			ID:           intentID,
			ClientSecret: intentID + "_secret_test",
			Currency:     DefaultCurrency,
		}
		c.mock[intentID] = intent
	}
	intent.Status = IntentStatusSucceeded
	intent.ChargeID = "ch_test_" + randomHex(12)

	copied := *intent
	return &copied
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out *providerIntent) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrIntentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status=%d body=%s", ErrProvider, resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: unexpected response: %v", ErrProvider, err)
	}
	return nil
}

// providerIntent is the provider's wire shape for a payment intent.
type providerIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	LatestCharge string            `json:"latest_charge"`
	Metadata     map[string]string `json:"metadata"`
}

func (p providerIntent) toIntent() *Intent {
	intent := &Intent{
		ID:           p.ID,
		ClientSecret: p.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       p.Status,
		ChargeID:     p.LatestCharge,
	}
	if p.Metadata != nil {
		intent.BookingID = p.Metadata["bookingId"]
		intent.OrderID = p.Metadata["orderId"]
	}
	return intent
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure leaves nothing sensible to do for id generation
		panic(err)
	}
	return hex.EncodeToString(buf)
}

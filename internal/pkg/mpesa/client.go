package mpesa

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

const defaultAPIBaseURL = "https://sandbox.safaricom.co.ke"

// ErrProvider marks upstream mobile-money failures.
var ErrProvider = errors.New("mpesa provider error")

// Client performs STK-push initiations against the Daraja-style API. Without
// consumer credentials it runs in simulated mode and fabricates accepted
// responses so checkout flows work in development.
type Client struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	APIBaseURL     string

	HTTPClient *http.Client
}

// StkPushParams describes one payment prompt pushed to a customer's phone.
type StkPushParams struct {
	PhoneNumber string
	AmountCents int64
	AccountRef  string
	Description string
}

// StkPushResult mirrors the provider's initiation response.
type StkPushResult struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

func NewClientFromEnv() *Client {
	return &Client{
		ConsumerKey:    strings.TrimSpace(env.GetEnv("MPESA_CONSUMER_KEY", "")),
		ConsumerSecret: strings.TrimSpace(env.GetEnv("MPESA_CONSUMER_SECRET", "")),
		ShortCode:      strings.TrimSpace(env.GetEnv("MPESA_SHORTCODE", "")),
		Passkey:        strings.TrimSpace(env.GetEnv("MPESA_PASSKEY", "")),
		CallbackURL:    strings.TrimSpace(env.GetEnv("MPESA_CALLBACK_URL", "")),
		APIBaseURL:     strings.TrimRight(env.GetEnv("MPESA_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SimulatedMode reports whether the client fabricates accepted initiations.
func (c *Client) SimulatedMode() bool {
	return c.ConsumerKey == "" || c.ConsumerSecret == ""
}

// InitiateStkPush asks the provider to prompt the customer's phone for
// payment. Amounts are whole currency units on the wire.
func (c *Client) InitiateStkPush(ctx context.Context, p StkPushParams) (*StkPushResult, error) {
	if c.SimulatedMode() {
		log.Warn("[Mpesa] provider not configured, simulating STK push")
		return &StkPushResult{
			MerchantRequestID: "mr_sim_" + randomHex(8),
			CheckoutRequestID: "ws_CO_sim_" + randomHex(12),
			ResponseCode:      "0",
			ResponseDesc:      "Success. Request accepted for processing",
			CustomerMessage:   "Success. Request accepted for processing",
		}, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.ShortCode + c.Passkey + timestamp))

	body := map[string]any{
		"BusinessShortCode": c.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            p.AmountCents / 100,
		"PartyA":            p.PhoneNumber,
		"PartyB":            c.ShortCode,
		"PhoneNumber":       p.PhoneNumber,
		"CallBackURL":       c.CallbackURL,
		"AccountReference":  p.AccountRef,
		"TransactionDesc":   p.Description,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.APIBaseURL+"/mpesa/stkpush/v1/processrequest", strings.NewReader(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrProvider, resp.StatusCode, string(raw))
	}

	var out StkPushResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: unexpected response: %v", ErrProvider, err)
	}
	return &out, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.APIBaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token fetch failed: status=%d", ErrProvider, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: unexpected token response: %v", ErrProvider, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProvider)
	}
	return out.AccessToken, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types the settlement workflow cares about. Everything else is
// acknowledged without a local mutation.
const (
	EventPaymentSucceeded    = "payment_intent.succeeded"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventChargeRefunded      = "charge.refunded"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// SignatureTolerance bounds how old a signed webhook timestamp may be.
const SignatureTolerance = 5 * time.Minute

// Event is the provider's webhook envelope.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object EventObject `json:"object"`
}

// EventObject is the intent (or charge) carried by the event. Metadata holds
// the bookingId/orderId correlation keys set at intent creation.
type EventObject struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	LatestCharge string            `json:"latest_charge"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// ParseEvent decodes a raw webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event type")
	}
	return &ev, nil
}

// VerifyWebhookSignature checks a `t=<unix>,v1=<hex>` header against the
// shared secret: the signed message is `<t>.<payload>` under HMAC-SHA256.
// Timestamps older than SignatureTolerance are rejected.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	return verifyWebhookSignatureAt(payload, signatureHeader, webhookSecret, time.Now())
}

func verifyWebhookSignatureAt(payload []byte, signatureHeader, webhookSecret string, now time.Time) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	var ts int64 = -1
	var candidates [][]byte
	for _, part := range strings.Split(sig, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			ts = parsed
		case "v1":
			decoded, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, decoded)
		}
	}
	if ts < 0 || len(candidates) == 0 {
		return false
	}
	if now.Sub(time.Unix(ts, 0)) > SignatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}

// SignWebhookPayload produces a valid signature header for a payload. Used by
// tests and local tooling to fabricate provider deliveries.
func SignWebhookPayload(payload []byte, webhookSecret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// VerifyAndParse applies the client's webhook-secret policy: when a secret is
// configured a bad signature is an ErrSignature, when none is configured
// verification is skipped (defense-in-depth, not fail-closed). The returned
// bool reports whether the signature was actually verified.
func (c *Client) VerifyAndParse(payload []byte, signatureHeader string) (*Event, bool, error) {
	verified := false
	if c.WebhookSecret != "" {
		if !VerifyWebhookSignature(payload, signatureHeader, c.WebhookSecret) {
			return nil, false, ErrSignature
		}
		verified = true
	}

	ev, err := ParseEvent(payload)
	if err != nil {
		return nil, verified, err
	}
	return ev, verified, nil
}

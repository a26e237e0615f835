package payment

import (
	"errors"
	"math"
)

const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusFailed                = "failed"
)

const DefaultCurrency = "usd"

var (
	// ErrProvider marks upstream provider failures (HTTP errors, timeouts,
	// non-2xx responses). Callers surface a generic payment failure and leave
	// local records untouched.
	ErrProvider = errors.New("payment provider error")

	// ErrIntentNotFound is returned when an intent id is unknown.
	ErrIntentNotFound = errors.New("payment intent not found")

	// ErrSignature marks a webhook signature mismatch.
	ErrSignature = errors.New("webhook signature verification failed")
)

// Intent is the provider-side payment attempt, mirrored locally only by id
// and status. ClientSecret is opaque to everything but the paying client.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ChargeID     string `json:"charge_id,omitempty"`
	BookingID    string `json:"booking_id,omitempty"`
	OrderID      string `json:"order_id,omitempty"`
}

// CreateIntentParams carries everything attached to a new intent. BookingID /
// OrderID travel as provider metadata so webhook reconciliation can find the
// local record.
type CreateIntentParams struct {
	AmountCents   int64
	Currency      string
	Description   string
	BookingID     string
	OrderID       string
	CustomerName  string
	CustomerEmail string
}

// MinorUnits converts a major-unit decimal amount to integer minor units,
// rounding half away from zero. All persisted amounts are minor units.
func MinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

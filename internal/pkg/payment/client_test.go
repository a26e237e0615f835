package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient() *Client {
	return &Client{mock: make(map[string]*Intent)}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{123.45, 12345},
		{15000, 1500000},
		{0, 0},
		{0.005, 1},
		{9.99, 999},
	}

	for _, tt := range tests {
		if got := MinorUnits(tt.in); got != tt.want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCreateIntentMockMode(t *testing.T) {
	c := newMockClient()
	require.True(t, c.MockMode())

	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{
		AmountCents: MinorUnits(123.45),
		BookingID:   "BOOK-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12345), intent.Amount)
	assert.Equal(t, DefaultCurrency, intent.Currency)
	assert.Equal(t, IntentStatusRequiresPaymentMethod, intent.Status)
	assert.True(t, strings.HasPrefix(intent.ID, "pi_test_"), "id %q", intent.ID)
	assert.Equal(t, intent.ID+"_secret_test", intent.ClientSecret)
	assert.Equal(t, "BOOK-1", intent.BookingID)
}

func TestConfirmIntentMockMode(t *testing.T) {
	c := newMockClient()

	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{AmountCents: 500})
	require.NoError(t, err)

	confirmed, err := c.ConfirmIntent(context.Background(), intent.ID, "pm_test")
	require.NoError(t, err)
	assert.Equal(t, IntentStatusSucceeded, confirmed.Status)
	assert.True(t, strings.HasPrefix(confirmed.ChargeID, "ch_test_"))
	assert.Equal(t, int64(500), confirmed.Amount)

	// Unknown ids still confirm; development clients rely on this.
	unknown, err := c.ConfirmIntent(context.Background(), "pi_test_unknown", "pm_test")
	require.NoError(t, err)
	assert.Equal(t, IntentStatusSucceeded, unknown.Status)
}

func TestGetIntentMockMode(t *testing.T) {
	c := newMockClient()

	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{AmountCents: 1000, OrderID: "ORDER-1"})
	require.NoError(t, err)

	got, err := c.GetIntent(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)
	assert.Equal(t, "ORDER-1", got.OrderID)

	_, err = c.GetIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestCreateIntentLiveMode(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_live_1","client_secret":"pi_live_1_secret","amount":12345,"currency":"usd","status":"requires_payment_method","metadata":{"bookingId":"BOOK-9"}}`))
	}))
	defer srv.Close()

	c := &Client{
		SecretKey:  "sk_test_key",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}

	intent, err := c.CreateIntent(context.Background(), CreateIntentParams{
		AmountCents:   12345,
		BookingID:     "BOOK-9",
		CustomerEmail: "alice@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/payment_intents", gotPath)
	assert.Equal(t, "Bearer sk_test_key", gotAuth)
	assert.Equal(t, []string{"12345"}, gotForm["amount"])
	assert.Equal(t, []string{"BOOK-9"}, gotForm["metadata[bookingId]"])
	assert.Equal(t, []string{"alice@example.com"}, gotForm["receipt_email"])

	assert.Equal(t, "pi_live_1", intent.ID)
	assert.Equal(t, "BOOK-9", intent.BookingID)
}

func TestLiveModeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "pi_missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{
		SecretKey:  "sk_test_key",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}

	_, err := c.GetIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)

	_, err = c.ConfirmIntent(context.Background(), "pi_any", "pm_test")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestLiveModeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := &Client{
		SecretKey:  "sk_test_key",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.CreateIntent(ctx, CreateIntentParams{AmountCents: 100})
	require.Error(t, err)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider on timeout, got %v", err)
	}
}

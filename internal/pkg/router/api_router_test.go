package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankariuki86-png/megapark-backend/app/controllers"
	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/token"
)

type testEnv struct {
	app    *fiber.App
	tokens *token.Service
}

func newTestApp(t *testing.T) *testEnv {
	t.Helper()

	repos, err := repository.NewFileRepositories(t.TempDir())
	require.NoError(t, err)

	workflow := settlement.NewService(repos, &payment.Client{}, &mpesa.Client{}, &mail.Mailer{})
	tokens := token.NewServiceFromEnv()

	app := fiber.New()
	InstallRoutes(app, Deps{
		Bookings: controllers.NewBookingController(workflow),
		Orders:   controllers.NewOrderController(workflow),
		Payments: controllers.NewPaymentController(workflow),
		Quotes:   controllers.NewQuoteController(repos.Quote, &mail.Mailer{}),
		Auth:     controllers.NewAuthController(repos.User, tokens, &mail.Mailer{}),
		Health:   controllers.NewHealthController("file", nil),
		Tokens:   tokens,
	})
	return &testEnv{app: app, tokens: tokens}
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	pair, err := e.tokens.IssueTokenPair(token.Identity{
		UserID: "user-1",
		Email:  "staff@example.com",
		Role:   models.ROLE_ADMIN,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

func TestBookingPaymentFlow(t *testing.T) {
	env := newTestApp(t)
	bearer := env.accessToken(t)

	// Create a room booking.
	resp, raw := env.request(t, fiber.MethodPost, "/api/bookings", "", map[string]any{
		"customerName":  "Alice",
		"customerEmail": "alice@example.com",
		"bookingType":   "room",
		"bookingData":   map[string]any{"roomId": "R1", "checkIn": "2026-09-01", "checkOut": "2026-09-03", "guests": 2},
		"total":         150.00,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "body: %s", raw)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(raw, &booking))
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, int64(15000), booking.TotalCents)

	// Create an intent for it; amounts go over the wire as major units.
	resp, raw = env.request(t, fiber.MethodPost, "/api/payments/create-intent", "", map[string]any{
		"totalPrice":    150.00,
		"bookingId":     booking.ID,
		"customerName":  "Alice",
		"customerEmail": "alice@example.com",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", raw)

	var created struct {
		IntentID     string `json:"intentId"`
		ClientSecret string `json:"clientSecret"`
		Amount       int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.IntentID)
	assert.NotEmpty(t, created.ClientSecret)
	assert.Equal(t, int64(15000), created.Amount)

	// Confirm: mock gateway succeeds and the settlement flips the booking.
	resp, raw = env.request(t, fiber.MethodPost, "/api/payments/confirm-intent", "", map[string]any{
		"intentId":        created.IntentID,
		"paymentMethodId": "pm_card_visa",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", raw)

	var confirmed struct {
		Status   string `json:"status"`
		ChargeID string `json:"chargeId"`
	}
	require.NoError(t, json.Unmarshal(raw, &confirmed))
	assert.Equal(t, payment.IntentStatusSucceeded, confirmed.Status)
	assert.NotEmpty(t, confirmed.ChargeID)

	// Intent lookup reflects the settled state.
	resp, raw = env.request(t, fiber.MethodGet, "/api/payments/intent/"+created.IntentID, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", raw)

	// The booking is paid for authenticated readers.
	resp, raw = env.request(t, fiber.MethodGet, "/api/bookings", bearer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "body: %s", raw)

	var bookings []models.Booking
	require.NoError(t, json.Unmarshal(raw, &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, models.PaymentStatusPaid, bookings[0].PaymentStatus)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	env := newTestApp(t)

	resp, _ := env.request(t, fiber.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodGet, "/api/bookings", "garbage-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodGet, "/api/bookings", env.accessToken(t), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Quote listing is back-office only.
	pair, err := env.tokens.IssueTokenPair(token.Identity{UserID: "user-2", Role: models.ROLE_CUSTOMER})
	require.NoError(t, err)
	resp, _ = env.request(t, fiber.MethodGet, "/api/halls/quotes", pair.AccessToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodGet, "/api/halls/quotes", env.accessToken(t), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestBookingValidationErrors(t *testing.T) {
	env := newTestApp(t)
	bearer := env.accessToken(t)

	// Unknown bookingData field is rejected at the boundary.
	resp, raw := env.request(t, fiber.MethodPost, "/api/bookings", "", map[string]any{
		"customerName": "Alice",
		"bookingType":  "room",
		"bookingData":  map[string]any{"roomId": "R1", "surprise": true},
		"total":        100,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "body: %s", raw)

	var errBody struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, "validation_failed", errBody.Error)

	// Empty patch is rejected.
	resp, raw = env.request(t, fiber.MethodPost, "/api/bookings", "", map[string]any{
		"customerName": "Alice",
		"bookingType":  "room",
		"bookingData":  map[string]any{"roomId": "R1"},
		"total":        100,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var booking models.Booking
	require.NoError(t, json.Unmarshal(raw, &booking))

	resp, _ = env.request(t, fiber.MethodPut, "/api/bookings/"+booking.ID, bearer, map[string]any{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown booking id surfaces as 404.
	status := models.BookingStatusConfirmed
	resp, _ = env.request(t, fiber.MethodPut, "/api/bookings/BOOK-missing", bearer, map[string]any{"status": status})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := newTestApp(t)

	resp, raw := env.request(t, fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "Alice@Example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "body: %s", raw)

	var registered struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(raw, &registered))
	require.NotEmpty(t, registered.AccessToken)

	// Issued token works against the protected surface.
	resp, _ = env.request(t, fiber.MethodGet, "/api/bookings", registered.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Duplicate registration conflicts.
	resp, _ = env.request(t, fiber.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Login is case-insensitive on email; bad password gets a uniform 401.
	resp, _ = env.request(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestApp(t)

	resp, raw := env.request(t, fiber.MethodGet, "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health struct {
		OK      bool   `json:"ok"`
		Storage string `json:"storage"`
		Cache   string `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.True(t, health.OK)
	assert.Equal(t, "file", health.Storage)
	assert.Equal(t, "off", health.Cache)
}

package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
)

func newTestService(t *testing.T) (*Service, *mail.Mailer) {
	t.Helper()

	repos, err := repository.NewFileRepositories(t.TempDir())
	require.NoError(t, err)

	mailer := &mail.Mailer{}
	svc := &Service{
		repos:     repos,
		gateway:   &payment.Client{},
		mobile:    &mpesa.Client{},
		mailer:    mailer,
		locks:     newKeyedMutex(),
		ioTimeout: 2 * time.Second,
	}
	return svc, mailer
}

func createTestBooking(t *testing.T, svc *Service) *models.Booking {
	t.Helper()
	booking, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		BookingType:   models.BookingTypeRoom,
		BookingData:   json.RawMessage(`{"roomId":"R1","checkIn":"2026-09-01","checkOut":"2026-09-03","guests":2}`),
		Total:         150,
	})
	require.NoError(t, err)
	return booking
}

func capturedByTemplate(mailer *mail.Mailer, template string) []mail.CapturedMessage {
	var out []mail.CapturedMessage
	for _, msg := range mailer.Captured() {
		if msg.Template == template {
			out = append(out, msg)
		}
	}
	return out
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		in   CreateBookingInput
	}{
		{"missing customer name", CreateBookingInput{
			BookingType: models.BookingTypeRoom,
			Total:       100,
		}},
		{"negative total", CreateBookingInput{
			CustomerName: "Alice",
			BookingType:  models.BookingTypeRoom,
			Total:        -1,
		}},
		{"unknown booking type", CreateBookingInput{
			CustomerName: "Alice",
			BookingType:  "spa",
			Total:        100,
		}},
		{"unknown booking data field", CreateBookingInput{
			CustomerName: "Alice",
			BookingType:  models.BookingTypeRoom,
			BookingData:  json.RawMessage(`{"roomId":"R1","surprise":true}`),
			Total:        100,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tt.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}

	// Nothing persisted by the rejected inputs.
	bookings, err := svc.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCreateBookingPersistsAndNotifies(t *testing.T) {
	svc, mailer := newTestService(t)

	booking := createTestBooking(t, svc)

	assert.Equal(t, models.BookingStatusBooked, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, int64(15000), booking.TotalCents)
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())

	msgs := capturedByTemplate(mailer, mail.TemplateBookingConfirmation)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", msgs[0].To)
}

func TestConfirmPaymentSettlesBookingOnce(t *testing.T) {
	svc, mailer := newTestService(t)
	booking := createTestBooking(t, svc)

	intent, err := svc.CreatePaymentIntent(context.Background(), CreateIntentInput{
		TotalPrice: 150,
		BookingID:  booking.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), intent.Amount)

	// Confirming twice must settle exactly once.
	for i := 0; i < 2; i++ {
		confirmed, err := svc.ConfirmPayment(context.Background(), intent.ID, "pm_test")
		require.NoError(t, err)
		assert.Equal(t, payment.IntentStatusSucceeded, confirmed.Status)
	}

	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.NotEmpty(t, stored.PaymentData)
	require.NotNil(t, stored.PaymentNotifiedAt)

	assert.Len(t, capturedByTemplate(mailer, mail.TemplatePaymentConfirmation), 1)
}

func webhookPayload(eventID, bookingID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"payment_intent.succeeded","data":{"object":{"id":"pi_evt","amount":15000,"currency":"usd","status":"succeeded","latest_charge":"ch_evt","metadata":{"bookingId":%q}}}}`,
		eventID, bookingID))
}

func TestWebhookSettlesBookingIdempotently(t *testing.T) {
	svc, mailer := newTestService(t)
	booking := createTestBooking(t, svc)

	payload := webhookPayload("evt_1", booking.ID)

	// Same delivery replayed: booking paid once, one notification.
	for i := 0; i < 2; i++ {
		handled, err := svc.HandleWebhook(context.Background(), payload, "")
		require.NoError(t, err)
		assert.True(t, handled)
	}

	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Len(t, capturedByTemplate(mailer, mail.TemplatePaymentConfirmation), 1)
}

func TestConfirmThenWebhookSendsOneNotification(t *testing.T) {
	svc, mailer := newTestService(t)
	booking := createTestBooking(t, svc)

	intent, err := svc.CreatePaymentIntent(context.Background(), CreateIntentInput{
		TotalPrice: 150,
		BookingID:  booking.ID,
	})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(context.Background(), intent.ID, "pm_test")
	require.NoError(t, err)

	// The provider's webhook for the same payment arrives afterwards.
	handled, err := svc.HandleWebhook(context.Background(), webhookPayload("evt_2", booking.ID), "")
	require.NoError(t, err)
	assert.True(t, handled)

	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Len(t, capturedByTemplate(mailer, mail.TemplatePaymentConfirmation), 1)
}

func TestWebhookSignatureEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	svc.gateway.WebhookSecret = "whsec_test"
	booking := createTestBooking(t, svc)

	payload := webhookPayload("evt_3", booking.ID)

	_, err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, payment.ErrSignature)

	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)

	// A matching signature settles.
	handled, err := svc.HandleWebhook(context.Background(), payload,
		payment.SignWebhookPayload(payload, "whsec_test", time.Now()))
	require.NoError(t, err)
	assert.True(t, handled)

	stored, err = svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}

func TestWebhookIgnoresNonSettlingEvents(t *testing.T) {
	svc, _ := newTestService(t)
	booking := createTestBooking(t, svc)

	failed := []byte(fmt.Sprintf(
		`{"id":"evt_4","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_f","metadata":{"bookingId":%q}}}}`,
		booking.ID))
	handled, err := svc.HandleWebhook(context.Background(), failed, "")
	require.NoError(t, err)
	assert.True(t, handled)

	unknown := []byte(`{"id":"evt_5","type":"invoice.created","data":{"object":{"id":"in_1"}}}`)
	handled, err = svc.HandleWebhook(context.Background(), unknown, "")
	require.NoError(t, err)
	assert.False(t, handled)

	// Neither event touched the booking.
	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestProviderTimeoutLeavesBookingPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	svc, _ := newTestService(t)
	svc.gateway = &payment.Client{
		SecretKey:  "sk_test_key",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}
	svc.ioTimeout = 30 * time.Millisecond
	booking := createTestBooking(t, svc)

	_, err := svc.CreatePaymentIntent(context.Background(), CreateIntentInput{
		TotalPrice: 150,
		BookingID:  booking.ID,
	})
	assert.ErrorIs(t, err, payment.ErrProvider)

	stored, err := svc.repos.Booking.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, stored.PaymentData)
}

func TestUpdateBooking(t *testing.T) {
	svc, _ := newTestService(t)
	booking := createTestBooking(t, svc)

	_, err := svc.UpdateBooking(context.Background(), booking.ID, UpdateBookingInput{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	status := models.BookingStatusConfirmed
	_, err = svc.UpdateBooking(context.Background(), "BOOK-missing", UpdateBookingInput{Status: &status})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	bad := "teleported"
	_, err = svc.UpdateBooking(context.Background(), booking.ID, UpdateBookingInput{Status: &bad})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	updated, err := svc.UpdateBooking(context.Background(), booking.ID, UpdateBookingInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, models.PaymentStatusPending, updated.PaymentStatus)
}

func TestReconcileRetriesPaidTransition(t *testing.T) {
	svc, _ := newTestService(t)
	booking := createTestBooking(t, svc)

	intent, err := svc.CreatePaymentIntent(context.Background(), CreateIntentInput{
		TotalPrice: 150,
		BookingID:  booking.ID,
	})
	require.NoError(t, err)

	// Not yet succeeded at the provider: reconcile refuses.
	_, err = svc.Reconcile(context.Background(), booking.ID, intent.ID)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = svc.ConfirmPayment(context.Background(), intent.ID, "pm_test")
	require.NoError(t, err)

	reconciled, err := svc.Reconcile(context.Background(), booking.ID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, reconciled.PaymentStatus)

	// Reconciling an already-paid booking is a no-op.
	again, err := svc.Reconcile(context.Background(), booking.ID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, again.PaymentStatus)
}

func TestCreateOrderComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		OrderType:     models.OrderTypePickup,
		Items: []OrderItemInput{
			{ItemName: "Grilled Tilapia", Quantity: 2, UnitPrice: 12.50},
			{ItemName: "Ugali", Quantity: 1, UnitPrice: 3.25},
		},
		DeliveryFee: 0,
		Tax:         2.21,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2825), order.SubtotalCents)
	assert.Equal(t, int64(221), order.TaxCents)
	assert.Equal(t, int64(3046), order.TotalCents)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	var items []models.OrderItem
	require.NoError(t, json.Unmarshal([]byte(order.Items), &items))
	require.Len(t, items, 2)
	assert.Equal(t, int64(2500), items[0].TotalCents)
}

func TestCreateOrderDeliveryRequiresAddress(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName: "Bob",
		OrderType:    models.OrderTypeDelivery,
		Items:        []OrderItemInput{{ItemName: "Pizza", Quantity: 1, UnitPrice: 10}},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestMpesaFlowSettlesOrder(t *testing.T) {
	svc, mailer := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerName:  "Carol",
		CustomerEmail: "carol@example.com",
		OrderType:     models.OrderTypeDineIn,
		Items:         []OrderItemInput{{ItemName: "Nyama Choma", Quantity: 1, UnitPrice: 15}},
	})
	require.NoError(t, err)

	result, err := svc.InitiateMpesaPayment(context.Background(), InitiateMpesaInput{
		PhoneNumber: "254712345678",
		Amount:      15,
		OrderID:     order.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.CheckoutRequestID)
	assert.Equal(t, "0", result.ResponseCode)

	var cb MpesaCallback
	cb.Body.StkCallback.CheckoutRequestID = result.CheckoutRequestID
	cb.Body.StkCallback.ResultCode = 0

	// Delivered twice; the order settles once.
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.HandleMpesaCallback(context.Background(), cb))
	}

	stored, err := svc.repos.Order.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)

	// One confirmation at creation plus exactly one paid notification.
	assert.Len(t, capturedByTemplate(mailer, mail.TemplateOrderConfirmation), 2)
}

func TestMpesaRejectsBadPhoneNumber(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.InitiateMpesaPayment(context.Background(), InitiateMpesaInput{
		PhoneNumber: "0712345678",
		Amount:      10,
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

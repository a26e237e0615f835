package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

func TestFileBookingRepositoryCRUD(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileBookingRepository(dir)
	require.NoError(t, err)

	first := &models.Booking{
		CustomerName:  "Alice",
		BookingType:   models.BookingTypeRoom,
		TotalCents:    15000,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.BookingStatusBooked,
	}
	require.NoError(t, repo.Create(first))
	assert.NotEmpty(t, first.ID, "Create assigns the id")
	assert.False(t, first.CreatedAt.IsZero())

	second := &models.Booking{
		CustomerName:  "Bob",
		BookingType:   models.BookingTypeHall,
		TotalCents:    50000,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.BookingStatusBooked,
	}
	require.NoError(t, repo.Create(second))

	// Newest first.
	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.CustomerName)

	_, err = repo.GetByID("BOOK-missing")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Status = models.BookingStatusConfirmed
	require.NoError(t, repo.Update(got))
	updated, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, got.CreatedAt, updated.CreatedAt, "Update preserves CreatedAt")
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestFileBookingRepositoryMarkPaidIsConditional(t *testing.T) {
	repo, err := NewFileBookingRepository(t.TempDir())
	require.NoError(t, err)

	booking := &models.Booking{
		CustomerName:  "Alice",
		BookingType:   models.BookingTypeRoom,
		TotalCents:    100,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(booking))

	changed, err := repo.MarkPaid(booking.ID, `{"intent_id":"pi_1"}`)
	require.NoError(t, err)
	assert.True(t, changed)

	// Second transition is a no-op and keeps the first payment record.
	changed, err = repo.MarkPaid(booking.ID, `{"intent_id":"pi_2"}`)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := repo.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Contains(t, stored.PaymentData, "pi_1")

	_, err = repo.MarkPaid("BOOK-missing", "{}")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBookingRepositoryNotificationClaim(t *testing.T) {
	repo, err := NewFileBookingRepository(t.TempDir())
	require.NoError(t, err)

	booking := &models.Booking{CustomerName: "Alice", BookingType: models.BookingTypeRoom}
	require.NoError(t, repo.Create(booking))

	claimed, err := repo.MarkPaymentNotified(booking.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkPaymentNotified(booking.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim loses")
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewFileBookingRepository(dir)
	require.NoError(t, err)
	booking := &models.Booking{CustomerName: "Alice", BookingType: models.BookingTypeRoom, TotalCents: 100}
	require.NoError(t, repo.Create(booking))

	reopened, err := NewFileBookingRepository(dir)
	require.NoError(t, err)
	got, err := reopened.GetByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.CustomerName)
	assert.Equal(t, int64(100), got.TotalCents)
}

func TestFileWebhookEventRepositoryDeduplicates(t *testing.T) {
	repo, err := NewFileWebhookEventRepository(t.TempDir())
	require.NoError(t, err)

	event := &models.PaymentWebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     "{}",
	}
	created, stored, err := repo.CreateIfNotExists(event)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	require.NoError(t, repo.MarkProcessed(stored.ID, ""))

	replay := &models.PaymentWebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     "{}",
	}
	created, stored, err = repo.CreateIfNotExists(replay)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, stored)
	assert.NotNil(t, stored.ProcessedAt, "replay sees the processed original")

	// Different provider, same event id: still unique.
	other := &models.PaymentWebhookEvent{
		Provider:        "mpesa",
		ProviderEventID: "evt_1",
		EventType:       "stk.result",
		PayloadJSON:     "{}",
	}
	created, _, err = repo.CreateIfNotExists(other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFileOrderRepositoryMarkPaid(t *testing.T) {
	repo, err := NewFileOrderRepository(t.TempDir())
	require.NoError(t, err)

	order := &models.FoodOrder{
		CustomerName:  "Bob",
		OrderType:     models.OrderTypePickup,
		TotalCents:    3046,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(order))

	changed, err := repo.MarkPaid(order.ID, `{"intent_id":"pi_1"}`)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkPaid(order.ID, `{"intent_id":"pi_2"}`)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFileUserRepositoryEmailLookupIsCaseInsensitive(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	user, err := models.CreateUser("Alice", "alice@example.com", "password123", "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(user))

	got, err := repo.GetByEmail("ALICE@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

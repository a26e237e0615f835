package repository

import (
	"errors"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// ErrNotFound is returned by all repositories for unknown ids, regardless of
// backend. GORM's record-not-found is translated so callers never depend on a
// concrete storage client.
var ErrNotFound = errors.New("record not found")

// BookingRepository defines storage operations for bookings. MarkPaid and
// MarkPaymentNotified are conditional updates: they report whether this call
// performed the transition, which is what makes the two racing settlement
// paths (direct confirm and webhook) idempotent.
type BookingRepository interface {
	Create(booking *models.Booking) error
	GetByID(id string) (*models.Booking, error)
	List() ([]models.Booking, error)
	Update(booking *models.Booking) error
	MarkPaid(id string, paymentData string) (bool, error)
	MarkPaymentNotified(id string) (bool, error)
}

// OrderRepository defines storage operations for food orders, settled through
// the same workflow as bookings.
type OrderRepository interface {
	Create(order *models.FoodOrder) error
	GetByID(id string) (*models.FoodOrder, error)
	List() ([]models.FoodOrder, error)
	Update(order *models.FoodOrder) error
	MarkPaid(id string, paymentData string) (bool, error)
	MarkPaymentNotified(id string) (bool, error)
}

// UserRepository defines storage operations for accounts.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// QuoteRepository records hall quote requests.
type QuoteRepository interface {
	Create(quote *models.HallQuote) error
	List() ([]models.HallQuote, error)
}

// WebhookEventRepository persists provider webhook deliveries idempotently.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless one with the same provider +
	// provider event id already exists. It returns whether this call created
	// the record, plus the stored record either way.
	CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// MpesaRepository records STK-push transactions.
type MpesaRepository interface {
	Create(tx *models.MpesaTransaction) error
	GetByCheckoutRequestID(checkoutRequestID string) (*models.MpesaTransaction, error)
	UpdateStatus(checkoutRequestID, status string) error
}

// Repositories holds one repository per collection. Exactly one backend is
// selected at startup; the workflow never branches on the storage kind.
type Repositories struct {
	Booking      BookingRepository
	Order        OrderRepository
	User         UserRepository
	Quote        QuoteRepository
	WebhookEvent WebhookEventRepository
	Mpesa        MpesaRepository
}

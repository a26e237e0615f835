package repository

import (
	"gorm.io/gorm"
)

// NewGormRepositories builds all repositories on the relational backend.
func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Booking:      NewBookingRepository(db),
		Order:        NewOrderRepository(db),
		User:         NewUserRepository(db),
		Quote:        NewQuoteRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Mpesa:        NewMpesaRepository(db),
	}
}

// NewFileRepositories builds all repositories on the flat-file backend under
// the given data directory (one JSON array per collection).
func NewFileRepositories(dir string) (*Repositories, error) {
	booking, err := NewFileBookingRepository(dir)
	if err != nil {
		return nil, err
	}
	order, err := NewFileOrderRepository(dir)
	if err != nil {
		return nil, err
	}
	user, err := NewFileUserRepository(dir)
	if err != nil {
		return nil, err
	}
	quote, err := NewFileQuoteRepository(dir)
	if err != nil {
		return nil, err
	}
	webhookEvent, err := NewFileWebhookEventRepository(dir)
	if err != nil {
		return nil, err
	}
	mpesa, err := NewFileMpesaRepository(dir)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Booking:      booking,
		Order:        order,
		User:         user,
		Quote:        quote,
		WebhookEvent: webhookEvent,
		Mpesa:        mpesa,
	}, nil
}

package repository

import (
	"time"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// fileBookingRepository implements BookingRepository on a flat JSON file
// (bookings.json). Mutations are read-modify-write under the store mutex,
// which also makes MarkPaid/MarkPaymentNotified atomic per process.
type fileBookingRepository struct {
	store *jsonStore
}

func NewFileBookingRepository(dir string) (BookingRepository, error) {
	store, err := newJSONStore(dir, "bookings.json")
	if err != nil {
		return nil, err
	}
	return &fileBookingRepository{store: store}, nil
}

func (r *fileBookingRepository) Create(booking *models.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return err
	}

	if booking.ID == "" {
		booking.ID = models.NewBookingID()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	// Newest first, matching the relational List ordering.
	bookings = append([]models.Booking{*booking}, bookings...)
	return r.store.write(bookings)
}

func (r *fileBookingRepository) GetByID(id string) (*models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].ID == id {
			booking := bookings[i]
			return &booking, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileBookingRepository) List() ([]models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *fileBookingRepository) Update(booking *models.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return err
	}
	for i := range bookings {
		if bookings[i].ID == booking.ID {
			booking.CreatedAt = bookings[i].CreatedAt
			booking.PaymentNotifiedAt = bookings[i].PaymentNotifiedAt
			booking.UpdatedAt = time.Now().UTC()
			bookings[i] = *booking
			return r.store.write(bookings)
		}
	}
	return ErrNotFound
}

func (r *fileBookingRepository) MarkPaid(id string, paymentData string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return false, err
	}
	for i := range bookings {
		if bookings[i].ID != id {
			continue
		}
		if bookings[i].PaymentStatus == models.PaymentStatusPaid {
			return false, nil
		}
		bookings[i].PaymentStatus = models.PaymentStatusPaid
		bookings[i].PaymentData = paymentData
		bookings[i].UpdatedAt = time.Now().UTC()
		if err := r.store.write(bookings); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrNotFound
}

func (r *fileBookingRepository) MarkPaymentNotified(id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var bookings []models.Booking
	if err := r.store.read(&bookings); err != nil {
		return false, err
	}
	for i := range bookings {
		if bookings[i].ID != id {
			continue
		}
		if bookings[i].PaymentNotifiedAt != nil {
			return false, nil
		}
		now := time.Now().UTC()
		bookings[i].PaymentNotifiedAt = &now
		bookings[i].UpdatedAt = now
		if err := r.store.write(bookings); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrNotFound
}

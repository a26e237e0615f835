package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// bookingRepository implements BookingRepository on the relational backend.
type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = models.NewBookingID()
	}
	return r.db.Create(booking).Error
}

func (r *bookingRepository) GetByID(id string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) List() ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Order("created_at DESC").Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) Update(booking *models.Booking) error {
	tx := r.db.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(map[string]any{
		"customer_name":  booking.CustomerName,
		"customer_email": booking.CustomerEmail,
		"customer_phone": booking.CustomerPhone,
		"booking_data":   booking.BookingData,
		"payment_status": booking.PaymentStatus,
		"payment_data":   booking.PaymentData,
		"status":         booking.Status,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return r.db.Where("id = ?", booking.ID).First(booking).Error
}

// MarkPaid transitions the booking to paid only if it is not already paid;
// the single conditional UPDATE is the serialization point between the
// direct-confirm path and the webhook path.
func (r *bookingRepository) MarkPaid(id string, paymentData string) (bool, error) {
	tx := r.db.Model(&models.Booking{}).
		Where("id = ? AND payment_status <> ?", id, models.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status": models.PaymentStatusPaid,
			"payment_data":   paymentData,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Either already paid or unknown id; distinguish for the caller.
		var count int64
		if err := r.db.Model(&models.Booking{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// MarkPaymentNotified claims the single confirmation-notification slot for
// the booking. At most one caller per booking ever sees true.
func (r *bookingRepository) MarkPaymentNotified(id string) (bool, error) {
	tx := r.db.Model(&models.Booking{}).
		Where("id = ? AND payment_notified_at IS NULL", id).
		Update("payment_notified_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

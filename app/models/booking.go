package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BookingTypeRoom = "room"
	BookingTypeHall = "hall"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	BookingStatusBooked    = "booked"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Booking is a reservation record for a room or hall. Its lifecycle status is
// independent of the payment status; only the settlement workflow transitions
// payment_status to paid.
type Booking struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CustomerName      string     `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail     string     `gorm:"type:varchar(200);default:null" json:"customer_email,omitempty"`
	CustomerPhone     string     `gorm:"type:varchar(32);default:null" json:"customer_phone,omitempty"`
	BookingType       string     `gorm:"type:varchar(10);not null;index" json:"booking_type"`
	BookingData       string     `gorm:"type:longtext" json:"booking_data"`
	TotalCents        int64      `gorm:"not null" json:"total_cents"`
	PaymentStatus     string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"payment_status"`
	PaymentData       string     `gorm:"type:longtext" json:"payment_data,omitempty"`
	PaymentNotifiedAt *time.Time `gorm:"type:timestamp;default:null" json:"payment_notified_at,omitempty"`
	Status            string     `gorm:"type:varchar(16);not null;default:'booked';index" json:"status"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewBookingID keeps the historical BOOK- prefix over a collision-resistant id.
func NewBookingID() string {
	return "BOOK-" + uuid.NewString()
}

// PaymentRecord is the write-once record of the settling transaction, stored
// as JSON in Booking.PaymentData / FoodOrder.PaymentData.
type PaymentRecord struct {
	IntentID      string `json:"intent_id,omitempty"`
	ChargeID      string `json:"charge_id,omitempty"`
	Method        string `json:"method,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	SettledAt     string `json:"settled_at,omitempty"`
}

// RoomBookingData and HallBookingData form the tagged union behind
// Booking.BookingData, keyed by Booking.BookingType. Validated once at the
// boundary; the settlement workflow treats the blob as opaque.
type RoomBookingData struct {
	RoomID          string `json:"roomId"`
	CheckIn         string `json:"checkIn"`
	CheckOut        string `json:"checkOut"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type HallBookingData struct {
	HallID     string `json:"hallId"`
	EventDate  string `json:"eventDate"`
	GuestCount int    `json:"guestCount"`
	EventType  string `json:"eventType,omitempty"`
}

var ErrUnknownBookingType = errors.New("unknown booking type")

// ValidateBookingData checks the type-specific payload against its shape and
// returns it re-encoded for storage.
func ValidateBookingData(bookingType string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch bookingType {
	case BookingTypeRoom:
		var data RoomBookingData
		if err := strictUnmarshal(raw, &data); err != nil {
			return "", fmt.Errorf("invalid room booking data: %w", err)
		}
		if data.Guests < 0 {
			return "", errors.New("invalid room booking data: guests must be >= 0")
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	case BookingTypeHall:
		var data HallBookingData
		if err := strictUnmarshal(raw, &data); err != nil {
			return "", fmt.Errorf("invalid hall booking data: %w", err)
		}
		if data.GuestCount < 0 {
			return "", errors.New("invalid hall booking data: guestCount must be >= 0")
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBookingType, bookingType)
	}
}

func strictUnmarshal(raw json.RawMessage, out any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// SetPaymentRecord encodes and stores the settling transaction details.
func (b *Booking) SetPaymentRecord(rec PaymentRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b.PaymentData = string(encoded)
	return nil
}

func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func IsValidBookingStatus(s string) bool {
	switch s {
	case BookingStatusBooked, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

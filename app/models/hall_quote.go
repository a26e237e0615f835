package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	QuoteStatusPending   = "pending"
	QuoteStatusQuoted    = "quoted"
	QuoteStatusDeclined  = "declined"
	QuoteStatusConverted = "converted"
)

// HallQuote is a request for an event-hall price quote. Quotes are handled by
// the sales team; the system only records them and sends the notification pair
// (customer confirmation + sales alert).
type HallQuote struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CustomerName  string    `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string    `gorm:"type:varchar(200);not null" json:"customer_email"`
	CustomerPhone string    `gorm:"type:varchar(32);default:null" json:"customer_phone,omitempty"`
	EventType     string    `gorm:"type:varchar(100);not null" json:"event_type"`
	HallName      string    `gorm:"type:varchar(255);default:null" json:"hall_name,omitempty"`
	EventDate     string    `gorm:"type:varchar(32);not null" json:"event_date"`
	GuestCount    int       `gorm:"not null" json:"guest_count"`
	BudgetCents   int64     `gorm:"default:0" json:"budget_cents,omitempty"`
	Status        string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func NewQuoteID() string {
	return "QUOTE-" + uuid.NewString()
}

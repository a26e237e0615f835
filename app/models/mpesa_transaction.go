package models

import "time"

const (
	MpesaStatusInitiated = "initiated"
	MpesaStatusCompleted = "completed"
	MpesaStatusFailed    = "failed"
)

// MpesaTransaction records an STK-push initiation so the checkout request can
// later be correlated with a callback or manual reconciliation.
type MpesaTransaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	MerchantRequestID string    `gorm:"type:varchar(100);index" json:"merchant_request_id"`
	CheckoutRequestID string    `gorm:"type:varchar(100);uniqueIndex" json:"checkout_request_id"`
	PhoneNumber       string    `gorm:"type:varchar(20);not null;index" json:"phone_number"`
	AmountCents       int64     `gorm:"not null" json:"amount_cents"`
	AccountName       string    `gorm:"type:varchar(255);default:null" json:"account_name,omitempty"`
	OrderID           string    `gorm:"type:varchar(64);default:null;index" json:"order_id,omitempty"`
	Status            string    `gorm:"type:varchar(16);not null;default:'initiated';index" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OrderTypeDelivery = "delivery"
	OrderTypeDineIn   = "dine-in"
	OrderTypePickup   = "pickup"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// FoodOrder is a restaurant order settled through the same workflow as
// bookings (webhook metadata carries orderId for the order-centric flow).
type FoodOrder struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CustomerName      string     `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail     string     `gorm:"type:varchar(200);default:null" json:"customer_email,omitempty"`
	CustomerPhone     string     `gorm:"type:varchar(32);default:null" json:"customer_phone,omitempty"`
	OrderType         string     `gorm:"type:varchar(16);not null;default:'dine-in'" json:"order_type"`
	OrderDate         time.Time  `gorm:"autoCreateTime" json:"order_date"`
	DeliveryAddress   string     `gorm:"type:text" json:"delivery_address,omitempty"`
	Items             string     `gorm:"type:longtext" json:"items"`
	SubtotalCents     int64      `gorm:"not null;default:0" json:"subtotal_cents"`
	DeliveryFeeCents  int64      `gorm:"not null;default:0" json:"delivery_fee_cents"`
	TaxCents          int64      `gorm:"not null;default:0" json:"tax_cents"`
	TotalCents        int64      `gorm:"not null" json:"total_cents"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PaymentStatus     string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod     string     `gorm:"type:varchar(32);default:null" json:"payment_method,omitempty"`
	PaymentData       string     `gorm:"type:longtext" json:"payment_data,omitempty"`
	PaymentNotifiedAt *time.Time `gorm:"type:timestamp;default:null" json:"payment_notified_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func NewOrderID() string {
	return "ORDER-" + uuid.NewString()
}

// OrderItem is one line of a food order, stored as JSON in FoodOrder.Items.
type OrderItem struct {
	ItemName       string `json:"itemName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

func EncodeOrderItems(items []OrderItem) (string, error) {
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (o *FoodOrder) SetPaymentRecord(rec PaymentRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	o.PaymentData = string(encoded)
	return nil
}

func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func IsValidOrderType(s string) bool {
	switch s {
	case OrderTypeDelivery, OrderTypeDineIn, OrderTypePickup:
		return true
	}
	return false
}

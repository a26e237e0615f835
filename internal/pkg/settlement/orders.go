package settlement

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
)

// OrderItemInput is one order line as submitted by the client. Unit prices
// arrive as major-unit decimals.
type OrderItemInput struct {
	ItemName  string  `json:"itemName" validate:"required,max=255"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

// CreateOrderInput is the public food-order payload.
type CreateOrderInput struct {
	CustomerName    string           `json:"customerName" validate:"required,max=255"`
	CustomerEmail   string           `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone   string           `json:"customerPhone" validate:"omitempty,max=32"`
	OrderType       string           `json:"orderType" validate:"required,oneof=delivery dine-in pickup"`
	DeliveryAddress string           `json:"deliveryAddress"`
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	DeliveryFee     float64          `json:"deliveryFee" validate:"gte=0"`
	Tax             float64          `json:"tax" validate:"gte=0"`
}

// CreateOrder validates and persists a food order in
// (status=pending, paymentStatus=pending). Line and order totals are computed
// server side from the submitted items; client-sent totals are ignored.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.FoodOrder, error) {
	if err := validate.Struct(in); err != nil {
		return nil, asValidationError(err)
	}
	if in.OrderType == models.OrderTypeDelivery && in.DeliveryAddress == "" {
		return nil, validationError(FieldError{Field: "deliveryAddress", Message: "required for delivery orders"})
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	var subtotal int64
	for _, it := range in.Items {
		unit := payment.MinorUnits(it.UnitPrice)
		line := unit * int64(it.Quantity)
		items = append(items, models.OrderItem{
			ItemName:       it.ItemName,
			Quantity:       it.Quantity,
			UnitPriceCents: unit,
			TotalCents:     line,
		})
		subtotal += line
	}
	encoded, err := models.EncodeOrderItems(items)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}

	deliveryFee := payment.MinorUnits(in.DeliveryFee)
	tax := payment.MinorUnits(in.Tax)

	order := &models.FoodOrder{
		ID:               models.NewOrderID(),
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		CustomerPhone:    in.CustomerPhone,
		OrderType:        in.OrderType,
		DeliveryAddress:  in.DeliveryAddress,
		Items:            encoded,
		SubtotalCents:    subtotal,
		DeliveryFeeCents: deliveryFee,
		TaxCents:         tax,
		TotalCents:       subtotal + deliveryFee + tax,
		Status:           models.OrderStatusPending,
		PaymentStatus:    models.PaymentStatusPending,
	}

	if err := s.repos.Order.Create(order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if order.CustomerEmail != "" {
		result := s.mailer.Send(order.CustomerEmail, mail.TemplateOrderConfirmation, map[string]any{
			"ID":           order.ID,
			"CustomerName": order.CustomerName,
			"Status":       order.Status,
			"Total":        mail.FormatAmount(order.TotalCents, payment.DefaultCurrency),
		})
		if !result.Sent {
			log.Warnf("[Settlement] order confirmation email failed for %s: %s", order.ID, result.Reason)
		}
	}

	return order, nil
}

// ListOrders returns all food orders, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]models.FoodOrder, error) {
	return s.repos.Order.List()
}

// UpdateOrderInput is the authenticated partial patch for a food order.
type UpdateOrderInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

// UpdateOrder applies an administrative patch under the order's lock.
func (s *Service) UpdateOrder(ctx context.Context, id string, in UpdateOrderInput) (*models.FoodOrder, error) {
	if in.Status == nil && in.PaymentStatus == nil {
		return nil, ErrEmptyPatch
	}
	if in.Status != nil && !models.IsValidOrderStatus(*in.Status) {
		return nil, validationError(FieldError{Field: "status", Message: "invalid order status"})
	}
	if in.PaymentStatus != nil && !models.IsValidPaymentStatus(*in.PaymentStatus) {
		return nil, validationError(FieldError{Field: "paymentStatus", Message: "invalid payment status"})
	}

	unlock := s.locks.Lock("order:" + id)
	defer unlock()

	order, err := s.repos.Order.GetByID(id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		order.Status = *in.Status
	}
	if in.PaymentStatus != nil {
		order.PaymentStatus = *in.PaymentStatus
	}

	if err := s.repos.Order.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

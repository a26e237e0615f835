package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// orderRepository implements OrderRepository on the relational backend.
type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.FoodOrder) error {
	if order.ID == "" {
		order.ID = models.NewOrderID()
	}
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id string) (*models.FoodOrder, error) {
	var order models.FoodOrder
	err := r.db.Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List() ([]models.FoodOrder, error) {
	var orders []models.FoodOrder
	err := r.db.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.FoodOrder) error {
	tx := r.db.Model(&models.FoodOrder{}).Where("id = ?", order.ID).Updates(map[string]any{
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"payment_method": order.PaymentMethod,
		"payment_data":   order.PaymentData,
		"items":          order.Items,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return r.db.Where("id = ?", order.ID).First(order).Error
}

func (r *orderRepository) MarkPaid(id string, paymentData string) (bool, error) {
	tx := r.db.Model(&models.FoodOrder{}).
		Where("id = ? AND payment_status <> ?", id, models.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status": models.PaymentStatusPaid,
			"payment_data":   paymentData,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.FoodOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *orderRepository) MarkPaymentNotified(id string) (bool, error) {
	tx := r.db.Model(&models.FoodOrder{}).
		Where("id = ? AND payment_notified_at IS NULL", id).
		Update("payment_notified_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

package repository

import (
	"time"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// fileOrderRepository implements OrderRepository on orders.json.
type fileOrderRepository struct {
	store *jsonStore
}

func NewFileOrderRepository(dir string) (OrderRepository, error) {
	store, err := newJSONStore(dir, "orders.json")
	if err != nil {
		return nil, err
	}
	return &fileOrderRepository{store: store}, nil
}

func (r *fileOrderRepository) Create(order *models.FoodOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return err
	}

	if order.ID == "" {
		order.ID = models.NewOrderID()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	orders = append([]models.FoodOrder{*order}, orders...)
	return r.store.write(orders)
}

func (r *fileOrderRepository) GetByID(id string) (*models.FoodOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			order := orders[i]
			return &order, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileOrderRepository) List() ([]models.FoodOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *fileOrderRepository) Update(order *models.FoodOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return err
	}
	for i := range orders {
		if orders[i].ID == order.ID {
			order.CreatedAt = orders[i].CreatedAt
			order.PaymentNotifiedAt = orders[i].PaymentNotifiedAt
			order.UpdatedAt = time.Now().UTC()
			orders[i] = *order
			return r.store.write(orders)
		}
	}
	return ErrNotFound
}

func (r *fileOrderRepository) MarkPaid(id string, paymentData string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return false, err
	}
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		if orders[i].PaymentStatus == models.PaymentStatusPaid {
			return false, nil
		}
		orders[i].PaymentStatus = models.PaymentStatusPaid
		orders[i].PaymentData = paymentData
		orders[i].UpdatedAt = time.Now().UTC()
		if err := r.store.write(orders); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrNotFound
}

func (r *fileOrderRepository) MarkPaymentNotified(id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var orders []models.FoodOrder
	if err := r.store.read(&orders); err != nil {
		return false, err
	}
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		if orders[i].PaymentNotifiedAt != nil {
			return false, nil
		}
		now := time.Now().UTC()
		orders[i].PaymentNotifiedAt = &now
		orders[i].UpdatedAt = now
		if err := r.store.write(orders); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrNotFound
}

package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// userRepository implements UserRepository on the relational backend.
type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewUserID()
	}
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// quoteRepository implements QuoteRepository on the relational backend.
type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(quote *models.HallQuote) error {
	if quote.ID == "" {
		quote.ID = models.NewQuoteID()
	}
	return r.db.Create(quote).Error
}

func (r *quoteRepository) List() ([]models.HallQuote, error) {
	var quotes []models.HallQuote
	err := r.db.Order("created_at DESC").Find(&quotes).Error
	return quotes, err
}

// webhookEventRepository implements WebhookEventRepository on the relational
// backend using an insert-if-absent keyed on provider + provider event id.
type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// mpesaRepository implements MpesaRepository on the relational backend.
type mpesaRepository struct {
	db *gorm.DB
}

func NewMpesaRepository(db *gorm.DB) MpesaRepository {
	return &mpesaRepository{db: db}
}

func (r *mpesaRepository) Create(tx *models.MpesaTransaction) error {
	return r.db.Create(tx).Error
}

func (r *mpesaRepository) GetByCheckoutRequestID(checkoutRequestID string) (*models.MpesaTransaction, error) {
	var mpesaTx models.MpesaTransaction
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&mpesaTx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mpesaTx, nil
}

func (r *mpesaRepository) UpdateStatus(checkoutRequestID, status string) error {
	tx := r.db.Model(&models.MpesaTransaction{}).
		Where("checkout_request_id = ?", checkoutRequestID).
		Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

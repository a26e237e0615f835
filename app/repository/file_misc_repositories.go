package repository

import (
	"strings"
	"time"

	"github.com/frankariuki86-png/megapark-backend/app/models"
)

// fileUserRepository implements UserRepository on users.json.
type fileUserRepository struct {
	store *jsonStore
}

func NewFileUserRepository(dir string) (UserRepository, error) {
	store, err := newJSONStore(dir, "users.json")
	if err != nil {
		return nil, err
	}
	return &fileUserRepository{store: store}, nil
}

func (r *fileUserRepository) Create(user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []models.User
	if err := r.store.read(&users); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = models.NewUserID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	users = append(users, *user)
	return r.store.write(users)
}

func (r *fileUserRepository) GetByID(id string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []models.User
	if err := r.store.read(&users); err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			user := users[i]
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileUserRepository) GetByEmail(email string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []models.User
	if err := r.store.read(&users); err != nil {
		return nil, err
	}
	lower := strings.ToLower(email)
	for i := range users {
		if strings.ToLower(users[i].Email) == lower {
			user := users[i]
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileUserRepository) Update(user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []models.User
	if err := r.store.read(&users); err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			user.CreatedAt = users[i].CreatedAt
			user.UpdatedAt = time.Now().UTC()
			users[i] = *user
			return r.store.write(users)
		}
	}
	return ErrNotFound
}

// fileQuoteRepository implements QuoteRepository on quotes.json.
type fileQuoteRepository struct {
	store *jsonStore
}

func NewFileQuoteRepository(dir string) (QuoteRepository, error) {
	store, err := newJSONStore(dir, "quotes.json")
	if err != nil {
		return nil, err
	}
	return &fileQuoteRepository{store: store}, nil
}

func (r *fileQuoteRepository) Create(quote *models.HallQuote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var quotes []models.HallQuote
	if err := r.store.read(&quotes); err != nil {
		return err
	}
	if quote.ID == "" {
		quote.ID = models.NewQuoteID()
	}
	now := time.Now().UTC()
	quote.CreatedAt = now
	quote.UpdatedAt = now

	quotes = append([]models.HallQuote{*quote}, quotes...)
	return r.store.write(quotes)
}

func (r *fileQuoteRepository) List() ([]models.HallQuote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var quotes []models.HallQuote
	if err := r.store.read(&quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// fileWebhookEventRepository implements WebhookEventRepository on
// webhook_events.json with the same provider + event id uniqueness as the
// relational unique index.
type fileWebhookEventRepository struct {
	store *jsonStore
}

func NewFileWebhookEventRepository(dir string) (WebhookEventRepository, error) {
	store, err := newJSONStore(dir, "webhook_events.json")
	if err != nil {
		return nil, err
	}
	return &fileWebhookEventRepository{store: store}, nil
}

func (r *fileWebhookEventRepository) CreateIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var events []models.PaymentWebhookEvent
	if err := r.store.read(&events); err != nil {
		return false, nil, err
	}
	for i := range events {
		if events[i].Provider == event.Provider && events[i].ProviderEventID == event.ProviderEventID {
			stored := events[i]
			return false, &stored, nil
		}
	}

	event.ID = uint(len(events) + 1)
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	events = append(events, *event)
	if err := r.store.write(events); err != nil {
		return false, nil, err
	}
	stored := *event
	return true, &stored, nil
}

func (r *fileWebhookEventRepository) MarkProcessed(id uint, processingError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var events []models.PaymentWebhookEvent
	if err := r.store.read(&events); err != nil {
		return err
	}
	for i := range events {
		if events[i].ID == id {
			now := time.Now().UTC()
			events[i].ProcessedAt = &now
			events[i].ProcessingError = processingError
			events[i].UpdatedAt = now
			return r.store.write(events)
		}
	}
	return ErrNotFound
}

// fileMpesaRepository implements MpesaRepository on mpesa_transactions.json.
type fileMpesaRepository struct {
	store *jsonStore
}

func NewFileMpesaRepository(dir string) (MpesaRepository, error) {
	store, err := newJSONStore(dir, "mpesa_transactions.json")
	if err != nil {
		return nil, err
	}
	return &fileMpesaRepository{store: store}, nil
}

func (r *fileMpesaRepository) Create(tx *models.MpesaTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var txs []models.MpesaTransaction
	if err := r.store.read(&txs); err != nil {
		return err
	}
	tx.ID = uint(len(txs) + 1)
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	txs = append(txs, *tx)
	return r.store.write(txs)
}

func (r *fileMpesaRepository) GetByCheckoutRequestID(checkoutRequestID string) (*models.MpesaTransaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var txs []models.MpesaTransaction
	if err := r.store.read(&txs); err != nil {
		return nil, err
	}
	for i := range txs {
		if txs[i].CheckoutRequestID == checkoutRequestID {
			tx := txs[i]
			return &tx, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fileMpesaRepository) UpdateStatus(checkoutRequestID, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var txs []models.MpesaTransaction
	if err := r.store.read(&txs); err != nil {
		return err
	}
	for i := range txs {
		if txs[i].CheckoutRequestID == checkoutRequestID {
			txs[i].Status = status
			txs[i].UpdatedAt = time.Now().UTC()
			return r.store.write(txs)
		}
	}
	return ErrNotFound
}

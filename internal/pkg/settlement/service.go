package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
)

const providerName = "stripe"

var validate = validator.New()

// Service coordinates booking/order creation, payment-intent creation and
// confirmation, webhook-driven reconciliation and the notification side
// effects. All mutation entry points for the same record serialize on a
// per-id keyed mutex; the paid transition itself is a conditional update at
// the storage layer, so the direct-confirm path and the webhook path can race
// safely.
type Service struct {
	repos   *repository.Repositories
	gateway *payment.Client
	mobile  *mpesa.Client
	mailer  *mail.Mailer
	locks   *keyedMutex

	// ioTimeout bounds every call to the payment provider so a hung upstream
	// fails closed (record stays pending) instead of hanging the request.
	ioTimeout time.Duration
}

func NewService(repos *repository.Repositories, gateway *payment.Client, mobile *mpesa.Client, mailer *mail.Mailer) *Service {
	return &Service{
		repos:     repos,
		gateway:   gateway,
		mobile:    mobile,
		mailer:    mailer,
		locks:     newKeyedMutex(),
		ioTimeout: 10 * time.Second,
	}
}

// CreateBookingInput is the public booking-creation payload. Amounts arrive
// as major-unit decimals and are converted to minor units exactly once here.
type CreateBookingInput struct {
	CustomerName  string          `json:"customerName" validate:"required,max=255"`
	CustomerEmail string          `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string          `json:"customerPhone" validate:"omitempty,max=32"`
	BookingType   string          `json:"bookingType" validate:"required,oneof=room hall"`
	BookingData   json.RawMessage `json:"bookingData"`
	Total         float64         `json:"total" validate:"gte=0"`
}

// CreateBooking validates and persists a new booking in
// (status=booked, paymentStatus=pending) and fires a best-effort
// "booking received" notification when a contact email is present.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if err := validate.Struct(in); err != nil {
		return nil, asValidationError(err)
	}

	bookingData, err := models.ValidateBookingData(in.BookingType, in.BookingData)
	if err != nil {
		return nil, validationError(FieldError{Field: "bookingData", Message: err.Error()})
	}

	booking := &models.Booking{
		ID:            models.NewBookingID(),
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		BookingType:   in.BookingType,
		BookingData:   bookingData,
		TotalCents:    payment.MinorUnits(in.Total),
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.BookingStatusBooked,
	}

	if err := s.repos.Booking.Create(booking); err != nil {
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	if booking.CustomerEmail != "" {
		result := s.mailer.Send(booking.CustomerEmail, mail.TemplateBookingConfirmation, bookingMailData(booking))
		if !result.Sent {
			log.Warnf("[Settlement] booking confirmation email failed for %s: %s", booking.ID, result.Reason)
		}
	}

	return booking, nil
}

// ListBookings returns all bookings, newest first.
func (s *Service) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return s.repos.Booking.List()
}

// UpdateBookingInput is the authenticated partial patch: nil means "leave
// unchanged", and at least one field must be present.
type UpdateBookingInput struct {
	Status        *string         `json:"status"`
	PaymentStatus *string         `json:"paymentStatus"`
	BookingData   json.RawMessage `json:"bookingData"`
}

// UpdateBooking applies an administrative patch under the booking's lock.
func (s *Service) UpdateBooking(ctx context.Context, id string, in UpdateBookingInput) (*models.Booking, error) {
	if in.Status == nil && in.PaymentStatus == nil && len(in.BookingData) == 0 {
		return nil, ErrEmptyPatch
	}
	if in.Status != nil && !models.IsValidBookingStatus(*in.Status) {
		return nil, validationError(FieldError{Field: "status", Message: "invalid booking status"})
	}
	if in.PaymentStatus != nil && !models.IsValidPaymentStatus(*in.PaymentStatus) {
		return nil, validationError(FieldError{Field: "paymentStatus", Message: "invalid payment status"})
	}

	unlock := s.locks.Lock("booking:" + id)
	defer unlock()

	booking, err := s.repos.Booking.GetByID(id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		booking.Status = *in.Status
	}
	if in.PaymentStatus != nil {
		booking.PaymentStatus = *in.PaymentStatus
	}
	if len(in.BookingData) > 0 {
		bookingData, err := models.ValidateBookingData(booking.BookingType, in.BookingData)
		if err != nil {
			return nil, validationError(FieldError{Field: "bookingData", Message: err.Error()})
		}
		booking.BookingData = bookingData
	}

	if err := s.repos.Booking.Update(booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// CreateIntentInput ties a new payment intent to a booking or order.
type CreateIntentInput struct {
	TotalPrice    float64 `json:"totalPrice" validate:"gt=0"`
	BookingID     string  `json:"bookingId"`
	OrderID       string  `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail" validate:"omitempty,email"`
}

// CreatePaymentIntent creates a provider intent carrying the correlation
// metadata used by webhook reconciliation. The local record stays pending.
func (s *Service) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*payment.Intent, error) {
	if err := validate.Struct(in); err != nil {
		return nil, asValidationError(err)
	}

	description := ""
	switch {
	case in.BookingID != "":
		description = "Booking " + in.BookingID
	case in.OrderID != "":
		description = "Order " + in.OrderID
	}

	ctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	return s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		AmountCents:   payment.MinorUnits(in.TotalPrice),
		Description:   description,
		BookingID:     in.BookingID,
		OrderID:       in.OrderID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
	})
}

// ConfirmPayment confirms an intent with the provider. On success it runs the
// same idempotent reconciliation as the webhook path; reconciliation errors
// after a successful charge are logged loudly but do not fail the call, since
// the money has moved and the operator reconcile operation can repair state.
func (s *Service) ConfirmPayment(ctx context.Context, intentID, paymentMethodID string) (*payment.Intent, error) {
	var fields []FieldError
	if intentID == "" {
		fields = append(fields, FieldError{Field: "intentId", Message: "required"})
	}
	if paymentMethodID == "" {
		fields = append(fields, FieldError{Field: "paymentMethodId", Message: "required"})
	}
	if len(fields) > 0 {
		return nil, validationError(fields...)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	intent, err := s.gateway.ConfirmIntent(callCtx, intentID, paymentMethodID)
	if err != nil {
		return nil, err
	}

	if intent.Status == payment.IntentStatusSucceeded {
		if err := s.settleIntent(intent); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Errorf("[Settlement] payment %s succeeded but reconciliation failed: %v", intent.ID, err)
		}
	}
	return intent, nil
}

// GetPaymentIntent retrieves provider-side intent state.
func (s *Service) GetPaymentIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()
	return s.gateway.GetIntent(ctx, intentID)
}

// HandleWebhook verifies, records and dispatches one provider delivery.
// Signature or parse failures return an error (the provider should retry);
// anything after a successful parse is acknowledged, with internal failures
// only logged, to avoid provider-side retry storms.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (bool, error) {
	ev, sigValid, err := s.gateway.VerifyAndParse(payload, signatureHeader)
	if err != nil {
		return false, err
	}

	eventID := ev.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	record := &models.PaymentWebhookEvent{
		Provider:        providerName,
		ProviderEventID: eventID,
		EventType:       ev.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  sigValid,
	}
	created, stored, err := s.repos.WebhookEvent.CreateIfNotExists(record)
	if err != nil {
		log.Errorf("[Settlement] recording webhook event %s failed: %v", eventID, err)
		stored = nil
	}
	if !created && stored != nil && stored.ProcessedAt != nil {
		// Replayed delivery that was already fully processed.
		return knownEventType(stored.EventType), nil
	}

	handled := false
	var procErr error
	switch ev.Type {
	case payment.EventPaymentSucceeded:
		handled = true
		procErr = s.settleIntent(&payment.Intent{
			ID:        ev.Data.Object.ID,
			Amount:    ev.Data.Object.Amount,
			Currency:  ev.Data.Object.Currency,
			Status:    ev.Data.Object.Status,
			ChargeID:  ev.Data.Object.LatestCharge,
			BookingID: ev.Data.Object.Metadata["bookingId"],
			OrderID:   ev.Data.Object.Metadata["orderId"],
		})
		if procErr != nil {
			log.Errorf("[Settlement] webhook reconciliation for intent %s failed: %v", ev.Data.Object.ID, procErr)
		}
	case payment.EventPaymentFailed:
		// Acknowledged without a local transition: bookings stay pending and
		// operators act on the recorded event.
		log.Warnf("[Settlement] payment intent %s failed", ev.Data.Object.ID)
		handled = true
	case payment.EventChargeRefunded, payment.EventSubscriptionDeleted:
		handled = true
	default:
		log.Debugf("[Settlement] webhook event %s ignored", ev.Type)
	}

	if stored != nil {
		errMsg := ""
		if procErr != nil {
			errMsg = procErr.Error()
		}
		if err := s.repos.WebhookEvent.MarkProcessed(stored.ID, errMsg); err != nil {
			log.Errorf("[Settlement] marking webhook event %d processed failed: %v", stored.ID, err)
		}
	}
	return handled, nil
}

// Reconcile is the operator retry: verify the intent really succeeded at the
// provider, then run the normal idempotent paid transition for the booking.
func (s *Service) Reconcile(ctx context.Context, bookingID, intentID string) (*models.Booking, error) {
	if intentID == "" {
		return nil, validationError(FieldError{Field: "intentId", Message: "required"})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	intent, err := s.gateway.GetIntent(callCtx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != payment.IntentStatusSucceeded {
		return nil, validationError(FieldError{Field: "intentId", Message: "intent has not succeeded"})
	}
	if intent.BookingID != "" && intent.BookingID != bookingID {
		return nil, validationError(FieldError{Field: "intentId", Message: "intent belongs to a different booking"})
	}

	if err := s.settleBookingPaid(bookingID, intent); err != nil {
		return nil, err
	}
	return s.repos.Booking.GetByID(bookingID)
}

// knownEventType reports whether the event type is one the workflow
// acknowledges as handled.
func knownEventType(eventType string) bool {
	switch eventType {
	case payment.EventPaymentSucceeded, payment.EventPaymentFailed,
		payment.EventChargeRefunded, payment.EventSubscriptionDeleted:
		return true
	}
	return false
}

// settleIntent routes a succeeded intent to its local record via the
// correlation metadata. An intent with no correlation key is logged and
// dropped; there is nothing local to reconcile.
func (s *Service) settleIntent(intent *payment.Intent) error {
	switch {
	case intent.BookingID != "":
		return s.settleBookingPaid(intent.BookingID, intent)
	case intent.OrderID != "":
		return s.settleOrderPaid(intent.OrderID, intent)
	default:
		log.Warnf("[Settlement] succeeded intent %s carries no bookingId/orderId metadata", intent.ID)
		return nil
	}
}

// settleBookingPaid performs the idempotent paid transition plus the
// at-most-once confirmation notification, keyed on the booking id.
func (s *Service) settleBookingPaid(bookingID string, intent *payment.Intent) error {
	unlock := s.locks.Lock("booking:" + bookingID)
	defer unlock()

	rec := paymentRecord(intent)
	changed, err := s.repos.Booking.MarkPaid(bookingID, rec)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warnf("[Settlement] succeeded intent %s references unknown booking %s", intent.ID, bookingID)
		return err
	}
	if err != nil {
		// Money moved but the local record did not update. Operator-visible
		// and retryable via Reconcile.
		log.Errorf("[Settlement] CRITICAL: booking %s not marked paid after successful intent %s: %v", bookingID, intent.ID, err)
		return err
	}
	if changed {
		log.Infof("[Settlement] booking %s marked paid (intent %s)", bookingID, intent.ID)
	}

	s.notifyBookingPaid(bookingID)
	return nil
}

func (s *Service) settleOrderPaid(orderID string, intent *payment.Intent) error {
	unlock := s.locks.Lock("order:" + orderID)
	defer unlock()

	rec := paymentRecord(intent)
	changed, err := s.repos.Order.MarkPaid(orderID, rec)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warnf("[Settlement] succeeded intent %s references unknown order %s", intent.ID, orderID)
		return err
	}
	if err != nil {
		log.Errorf("[Settlement] CRITICAL: order %s not marked paid after successful intent %s: %v", orderID, intent.ID, err)
		return err
	}
	if changed {
		log.Infof("[Settlement] order %s marked paid (intent %s)", orderID, intent.ID)
	}

	s.notifyOrderPaid(orderID)
	return nil
}

// notifyBookingPaid claims the booking's single confirmation-notification
// slot and sends the email only when this call won the claim. Both racing
// settlement paths funnel through here; only one observes claimed=true.
func (s *Service) notifyBookingPaid(bookingID string) {
	claimed, err := s.repos.Booking.MarkPaymentNotified(bookingID)
	if err != nil {
		log.Warnf("[Settlement] claiming notification slot for booking %s failed: %v", bookingID, err)
		return
	}
	if !claimed {
		return
	}

	booking, err := s.repos.Booking.GetByID(bookingID)
	if err != nil || booking.CustomerEmail == "" {
		return
	}
	result := s.mailer.Send(booking.CustomerEmail, mail.TemplatePaymentConfirmation, map[string]any{
		"ID":           booking.ID,
		"CustomerName": booking.CustomerName,
		"Total":        mail.FormatAmount(booking.TotalCents, payment.DefaultCurrency),
	})
	if !result.Sent {
		log.Warnf("[Settlement] payment confirmation email failed for booking %s: %s", bookingID, result.Reason)
	}
}

func (s *Service) notifyOrderPaid(orderID string) {
	claimed, err := s.repos.Order.MarkPaymentNotified(orderID)
	if err != nil {
		log.Warnf("[Settlement] claiming notification slot for order %s failed: %v", orderID, err)
		return
	}
	if !claimed {
		return
	}

	order, err := s.repos.Order.GetByID(orderID)
	if err != nil || order.CustomerEmail == "" {
		return
	}
	result := s.mailer.Send(order.CustomerEmail, mail.TemplateOrderConfirmation, map[string]any{
		"ID":           order.ID,
		"CustomerName": order.CustomerName,
		"Status":       order.Status,
		"Total":        mail.FormatAmount(order.TotalCents, payment.DefaultCurrency),
	})
	if !result.Sent {
		log.Warnf("[Settlement] order confirmation email failed for order %s: %s", orderID, result.Reason)
	}
}

func paymentRecord(intent *payment.Intent) string {
	method := "card"
	if strings.HasPrefix(intent.ID, "mpesa:") {
		method = "mpesa"
	}
	rec := models.PaymentRecord{
		IntentID:  intent.ID,
		ChargeID:  intent.ChargeID,
		Method:    method,
		SettledAt: time.Now().UTC().Format(time.RFC3339),
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func bookingMailData(b *models.Booking) map[string]any {
	title := b.BookingType
	if title != "" {
		title = string(title[0]-'a'+'A') + title[1:]
	}
	return map[string]any{
		"ID":           b.ID,
		"CustomerName": b.CustomerName,
		"Type":         b.BookingType,
		"TypeTitle":    title,
		"Total":        mail.FormatAmount(b.TotalCents, payment.DefaultCurrency),
	}
}

// asValidationError converts validator errors to field-level detail.
func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
		})
	}
	return &ValidationError{Fields: fields}
}

package settlement

import (
	"context"
	"errors"
	"regexp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
)

// Kenyan MSISDN in international format, e.g. 2547XXXXXXXX.
var msisdnPattern = regexp.MustCompile(`^254[17]\d{8}$`)

// InitiateMpesaInput requests an STK push against a customer's phone.
type InitiateMpesaInput struct {
	PhoneNumber string  `json:"phoneNumber" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	OrderID     string  `json:"orderId"`
	AccountName string  `json:"accountName"`
}

// InitiateMpesaPayment pushes a payment prompt to the customer's phone and
// records the checkout request so the asynchronous callback can be correlated.
func (s *Service) InitiateMpesaPayment(ctx context.Context, in InitiateMpesaInput) (*mpesa.StkPushResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, asValidationError(err)
	}
	if !msisdnPattern.MatchString(in.PhoneNumber) {
		return nil, validationError(FieldError{Field: "phoneNumber", Message: "must be in 2547XXXXXXXX format"})
	}

	accountRef := in.AccountName
	if accountRef == "" {
		accountRef = "Megapark Hotel"
	}

	callCtx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	result, err := s.mobile.InitiateStkPush(callCtx, mpesa.StkPushParams{
		PhoneNumber: in.PhoneNumber,
		AmountCents: payment.MinorUnits(in.Amount),
		AccountRef:  accountRef,
		Description: "Megapark payment",
	})
	if err != nil {
		return nil, err
	}

	tx := &models.MpesaTransaction{
		MerchantRequestID: result.MerchantRequestID,
		CheckoutRequestID: result.CheckoutRequestID,
		PhoneNumber:       in.PhoneNumber,
		AmountCents:       payment.MinorUnits(in.Amount),
		AccountName:       accountRef,
		OrderID:           in.OrderID,
		Status:            models.MpesaStatusInitiated,
	}
	if err := s.repos.Mpesa.Create(tx); err != nil {
		// The prompt is already on the customer's phone; the transaction is
		// reconstructable from the provider's callback payload.
		log.Errorf("[Settlement] recording mpesa transaction %s failed: %v", result.CheckoutRequestID, err)
	}
	return result, nil
}

// MpesaCallback is the subset of the provider's asynchronous result payload
// the workflow acts on. ResultCode 0 means the customer completed payment.
type MpesaCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// HandleMpesaCallback finalizes an STK transaction. A successful result marks
// the linked order paid through the same idempotent transition as card
// payments. Unknown checkout ids are acknowledged and logged.
func (s *Service) HandleMpesaCallback(ctx context.Context, cb MpesaCallback) error {
	checkoutID := cb.Body.StkCallback.CheckoutRequestID
	if checkoutID == "" {
		return validationError(FieldError{Field: "CheckoutRequestID", Message: "required"})
	}

	tx, err := s.repos.Mpesa.GetByCheckoutRequestID(checkoutID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warnf("[Settlement] mpesa callback for unknown checkout %s", checkoutID)
		return nil
	}
	if err != nil {
		return err
	}

	if cb.Body.StkCallback.ResultCode != 0 {
		log.Infof("[Settlement] mpesa checkout %s failed: %s", checkoutID, cb.Body.StkCallback.ResultDesc)
		return s.repos.Mpesa.UpdateStatus(checkoutID, models.MpesaStatusFailed)
	}

	if err := s.repos.Mpesa.UpdateStatus(checkoutID, models.MpesaStatusCompleted); err != nil {
		return err
	}

	if tx.OrderID != "" {
		err := s.settleOrderPaid(tx.OrderID, &payment.Intent{
			ID:      "mpesa:" + checkoutID,
			Amount:  tx.AmountCents,
			OrderID: tx.OrderID,
			Status:  payment.IntentStatusSucceeded,
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Errorf("[Settlement] CRITICAL: mpesa checkout %s completed but order %s not settled: %v", checkoutID, tx.OrderID, err)
		}
	}
	return nil
}

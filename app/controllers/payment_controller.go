package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
)

// PaymentController exposes intent creation/confirmation, intent lookup, the
// provider webhook and the mobile-money endpoints. All of these are public:
// intents carry their own opaque secrets and webhooks authenticate by
// signature.
type PaymentController struct {
	workflow *settlement.Service
}

func NewPaymentController(workflow *settlement.Service) *PaymentController {
	return &PaymentController{workflow: workflow}
}

func (pc *PaymentController) HandleCreateIntent(c *fiber.Ctx) error {
	var in settlement.CreateIntentInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	intent, err := pc.workflow.CreatePaymentIntent(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"intentId":     intent.ID,
		"clientSecret": intent.ClientSecret,
		"amount":       intent.Amount,
		"currency":     intent.Currency,
	})
}

func (pc *PaymentController) HandleConfirmIntent(c *fiber.Ctx) error {
	var in struct {
		IntentID        string `json:"intentId"`
		PaymentMethodID string `json:"paymentMethodId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	intent, err := pc.workflow.ConfirmPayment(c.Context(), in.IntentID, in.PaymentMethodID)
	if err != nil {
		return writeError(c, err)
	}

	if intent.Status == payment.IntentStatusRequiresAction {
		return c.JSON(fiber.Map{
			"status":       intent.Status,
			"clientSecret": intent.ClientSecret,
		})
	}
	resp := fiber.Map{"status": intent.Status}
	if intent.ChargeID != "" {
		resp["chargeId"] = intent.ChargeID
	}
	return c.JSON(resp)
}

func (pc *PaymentController) HandleGetIntent(c *fiber.Ctx) error {
	intentID := c.Params("intentId")
	if intentID == "" {
		return badRequest(c, "intent id missing")
	}

	intent, err := pc.workflow.GetPaymentIntent(c.Context(), intentID)
	if err != nil {
		return writeError(c, err)
	}
	resp := fiber.Map{
		"status":   intent.Status,
		"amount":   intent.Amount,
		"currency": intent.Currency,
	}
	if intent.ChargeID != "" {
		resp["chargeId"] = intent.ChargeID
	}
	return c.JSON(resp)
}

// HandleWebhook receives provider deliveries. Signature or parse failures
// return non-2xx so the provider retries; everything after a successful parse
// is acknowledged with 200.
func (pc *PaymentController) HandleWebhook(c *fiber.Ctx) error {
	payloadCopy := append([]byte(nil), c.Body()...)
	signature := c.Get("Stripe-Signature")

	handled, err := pc.workflow.HandleWebhook(c.Context(), payloadCopy, signature)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"received": true,
		"handled":  handled,
	})
}

func (pc *PaymentController) HandleMpesaInitiate(c *fiber.Ctx) error {
	var in settlement.InitiateMpesaInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	result, err := pc.workflow.InitiateMpesaPayment(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"merchantRequestId": result.MerchantRequestID,
		"checkoutRequestId": result.CheckoutRequestID,
		"responseCode":      result.ResponseCode,
		"customerMessage":   result.CustomerMessage,
		"transactionId":     result.CheckoutRequestID,
	})
}

// HandleMpesaCallback always acknowledges the provider once the payload is
// parsed, mirroring the card webhook stance.
func (pc *PaymentController) HandleMpesaCallback(c *fiber.Ctx) error {
	var cb settlement.MpesaCallback
	if err := c.BodyParser(&cb); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := pc.workflow.HandleMpesaCallback(c.Context(), cb); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

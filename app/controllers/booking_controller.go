package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
)

// BookingController exposes the booking surface. Creation is public; listing,
// updates and reconciliation require a bearer token (enforced in the router).
type BookingController struct {
	workflow *settlement.Service
}

func NewBookingController(workflow *settlement.Service) *BookingController {
	return &BookingController{workflow: workflow}
}

func (bc *BookingController) HandleCreate(c *fiber.Ctx) error {
	var in settlement.CreateBookingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	booking, err := bc.workflow.CreateBooking(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booking)
}

func (bc *BookingController) HandleList(c *fiber.Ctx) error {
	bookings, err := bc.workflow.ListBookings(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(bookings)
}

func (bc *BookingController) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "booking id missing")
	}

	var in settlement.UpdateBookingInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	booking, err := bc.workflow.UpdateBooking(c.Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(booking)
}

// HandleReconcile is the operator retry for the storage-failed-after-payment
// case: re-checks the intent with the provider and re-runs the idempotent
// paid transition.
func (bc *BookingController) HandleReconcile(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "booking id missing")
	}

	var in struct {
		IntentID string `json:"intentId"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	booking, err := bc.workflow.Reconcile(c.Context(), id, in.IntentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(booking)
}

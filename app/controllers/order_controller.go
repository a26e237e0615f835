package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
)

// OrderController exposes the food-order surface; orders settle through the
// same workflow as bookings.
type OrderController struct {
	workflow *settlement.Service
}

func NewOrderController(workflow *settlement.Service) *OrderController {
	return &OrderController{workflow: workflow}
}

func (oc *OrderController) HandleCreate(c *fiber.Ctx) error {
	var in settlement.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	order, err := oc.workflow.CreateOrder(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (oc *OrderController) HandleList(c *fiber.Ctx) error {
	orders, err := oc.workflow.ListOrders(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

func (oc *OrderController) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "order id missing")
	}

	var in settlement.UpdateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	order, err := oc.workflow.UpdateOrder(c.Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

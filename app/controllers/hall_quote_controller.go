package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
)

// QuoteController records event-hall quote requests and fires the
// notification pair: a confirmation to the customer and an alert to the sales
// team. Quotes themselves are handled offline by sales.
type QuoteController struct {
	quotes repository.QuoteRepository
	mailer *mail.Mailer
}

func NewQuoteController(quotes repository.QuoteRepository, mailer *mail.Mailer) *QuoteController {
	return &QuoteController{quotes: quotes, mailer: mailer}
}

func (qc *QuoteController) HandleCreate(c *fiber.Ctx) error {
	var in struct {
		CustomerName  string  `json:"customerName"`
		CustomerEmail string  `json:"customerEmail"`
		CustomerPhone string  `json:"customerPhone"`
		EventType     string  `json:"eventType"`
		HallName      string  `json:"hallName"`
		EventDate     string  `json:"eventDate"`
		GuestCount    int     `json:"guestCount"`
		Budget        float64 `json:"budget"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if in.CustomerName == "" || in.CustomerEmail == "" || in.EventType == "" || in.EventDate == "" {
		return badRequest(c, "customerName, customerEmail, eventType and eventDate are required")
	}
	if in.GuestCount <= 0 {
		return badRequest(c, "guestCount must be positive")
	}

	quote := &models.HallQuote{
		ID:            models.NewQuoteID(),
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		EventType:     in.EventType,
		HallName:      in.HallName,
		EventDate:     in.EventDate,
		GuestCount:    in.GuestCount,
		BudgetCents:   payment.MinorUnits(in.Budget),
		Status:        models.QuoteStatusPending,
	}
	if err := qc.quotes.Create(quote); err != nil {
		return writeError(c, err)
	}

	salesEmail := env.GetEnv("SALES_EMAIL", env.GetEnv("ADMIN_EMAIL", ""))

	data := map[string]any{
		"CustomerName": quote.CustomerName,
		"EventType":    quote.EventType,
		"EventDate":    quote.EventDate,
		"GuestCount":   quote.GuestCount,
		"AdminPhone":   env.GetEnv("ADMIN_PHONE", ""),
		"SalesEmail":   salesEmail,
	}
	if result := qc.mailer.Send(quote.CustomerEmail, mail.TemplateQuoteConfirmation, data); !result.Sent {
		log.Warnf("[Quotes] quote confirmation email failed for %s: %s", quote.ID, result.Reason)
	}

	if salesEmail != "" {
		alert := map[string]any{
			"Subject": "New hall quote request " + quote.ID,
			"Message": quote.CustomerName + " requested a quote for a " + quote.EventType + " event.",
			"Details": map[string]any{
				"Quote":    quote.ID,
				"Email":    quote.CustomerEmail,
				"Phone":    quote.CustomerPhone,
				"Date":     quote.EventDate,
				"Guests":   quote.GuestCount,
				"HallName": quote.HallName,
			},
		}
		if result := qc.mailer.Send(salesEmail, mail.TemplateAdminAlert, alert); !result.Sent {
			log.Warnf("[Quotes] sales alert email failed for %s: %s", quote.ID, result.Reason)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(quote)
}

func (qc *QuoteController) HandleList(c *fiber.Ctx) error {
	quotes, err := qc.quotes.List()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(quotes)
}

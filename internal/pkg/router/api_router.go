package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/frankariuki86-png/megapark-backend/app/controllers"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/cache"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/middleware"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/token"
)

// Deps collects everything the route table needs. Constructed once in the
// process entry point.
type Deps struct {
	Bookings *controllers.BookingController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Quotes   *controllers.QuoteController
	Auth     *controllers.AuthController
	Health   *controllers.HealthController
	Tokens   *token.Service
}

// InstallRoutes wires the /api surface. Public write endpoints sit behind a
// rate limiter; booking/order listing and mutation require a bearer token.
// The webhook endpoints are deliberately outside the limiter so provider
// retries are never throttled into failure.
func InstallRoutes(app *fiber.App, deps Deps) {
	requireAuth := middleware.RequireAuth(deps.Tokens)

	api := app.Group("/api")

	api.Get("/health", deps.Health.HandleHealth)

	limited := api.Group("", limiter.New(limiterConfig()))

	limited.Post("/bookings", deps.Bookings.HandleCreate)
	api.Get("/bookings", requireAuth, deps.Bookings.HandleList)
	api.Put("/bookings/:id", requireAuth, deps.Bookings.HandleUpdate)
	api.Post("/bookings/:id/reconcile", requireAuth, deps.Bookings.HandleReconcile)

	limited.Post("/orders", deps.Orders.HandleCreate)
	api.Get("/orders", requireAuth, deps.Orders.HandleList)
	api.Put("/orders/:id", requireAuth, deps.Orders.HandleUpdate)

	limited.Post("/halls/quote", deps.Quotes.HandleCreate)
	api.Get("/halls/quotes", requireAuth, middleware.RequireAdmin, deps.Quotes.HandleList)

	limited.Post("/payments/create-intent", deps.Payments.HandleCreateIntent)
	limited.Post("/payments/confirm-intent", deps.Payments.HandleConfirmIntent)
	api.Get("/payments/intent/:intentId", deps.Payments.HandleGetIntent)
	api.Post("/payments/webhook", deps.Payments.HandleWebhook)
	limited.Post("/payments/mpesa/initiate", deps.Payments.HandleMpesaInitiate)
	api.Post("/payments/mpesa/callback", deps.Payments.HandleMpesaCallback)

	auth := api.Group("/auth", limiter.New(limiterConfig()))
	auth.Post("/register", deps.Auth.HandleRegister)
	auth.Post("/login", deps.Auth.HandleLogin)
	auth.Post("/refresh", deps.Auth.HandleRefresh)
	auth.Post("/logout", deps.Auth.HandleLogout)
}

// limiterConfig builds the shared rate-limit settings and, when a cache
// server is configured, backs the counters with redis so limits hold across
// instances.
func limiterConfig() limiter.Config {
	cfg := limiter.Config{
		Max:        limitMax(),
		Expiration: 1 * time.Minute,
	}
	if cache.Configured() {
		cfg.Storage = redis.New(redis.Config{
			Host: env.GetEnv("CACHE_HOST", "localhost"),
			Port: limitRedisPort(),
		})
	}
	return cfg
}

func limitMax() int {
	max, err := strconv.Atoi(env.GetEnv("RATE_LIMIT_MAX", "60"))
	if err != nil || max <= 0 {
		return 60
	}
	return max
}

func limitRedisPort() int {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		return 6379
	}
	return port
}

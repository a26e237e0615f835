package main

import (
	"fmt"
	goLog "log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/frankariuki86-png/megapark-backend/app/controllers"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/cache"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/database"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mpesa"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/payment"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/router"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/settlement"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/token"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "5000")))
	goLog.Fatal(err)
}

// NewApplication wires the whole process: config, storage backend selection,
// gateways, workflow and the HTTP surface. The storage backend is chosen
// exactly once here; everything downstream depends only on the repository
// interfaces.
func NewApplication() *fiber.App {
	env.SetupEnvFile()

	repos, backend := setupRepositories()

	var cacheClient *redis.Client
	if cache.Configured() {
		cacheClient = cache.NewClientFromEnv()
	}

	gateway := payment.NewClientFromEnv()
	if gateway.MockMode() {
		log.Warn("[App] payment provider not configured, running in mock mode")
	}
	mobile := mpesa.NewClientFromEnv()
	mailer := mail.NewMailerFromEnv()
	tokens := token.NewServiceFromEnv()

	workflow := settlement.NewService(repos, gateway, mobile, mailer)

	app := fiber.New(fiber.Config{
		AppName: "megapark-backend",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRoutes(app, router.Deps{
		Bookings: controllers.NewBookingController(workflow),
		Orders:   controllers.NewOrderController(workflow),
		Payments: controllers.NewPaymentController(workflow),
		Quotes:   controllers.NewQuoteController(repos.Quote, mailer),
		Auth:     controllers.NewAuthController(repos.User, tokens, mailer),
		Health:   controllers.NewHealthController(backend, cacheClient),
		Tokens:   tokens,
	})

	return app
}

func setupRepositories() (*repository.Repositories, string) {
	if database.Configured() {
		db, err := database.Connect()
		if err != nil {
			goLog.Fatalf("database configured but unreachable: %v", err)
		}
		log.Info("[App] using relational storage backend")
		return repository.NewGormRepositories(db), "mysql"
	}

	dataDir := env.GetEnv("DATA_DIR", "./data")
	repos, err := repository.NewFileRepositories(dataDir)
	if err != nil {
		goLog.Fatalf("file storage setup failed: %v", err)
	}
	log.Warnf("[App] no database configured, using file storage in %s", dataDir)
	return repos, "file"
}

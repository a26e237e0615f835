package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/cache"
)

// HealthController reports process liveness plus which storage backend was
// selected at startup and whether the cache answers.
type HealthController struct {
	storageBackend string
	cacheClient    *redis.Client
}

func NewHealthController(storageBackend string, cacheClient *redis.Client) *HealthController {
	return &HealthController{storageBackend: storageBackend, cacheClient: cacheClient}
}

func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	cacheState := "off"
	if hc.cacheClient != nil {
		if cache.Healthy(c.Context(), hc.cacheClient) {
			cacheState = "ok"
		} else {
			cacheState = "unreachable"
		}
	}
	return c.JSON(fiber.Map{
		"ok":      true,
		"storage": hc.storageBackend,
		"cache":   cacheState,
	})
}

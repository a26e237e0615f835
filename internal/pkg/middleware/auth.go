package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/token"
)

// Locals keys populated by RequireAuth.
const (
	KeyUserID = "user_id"
	KeyEmail  = "user_email"
	KeyRole   = "user_role"
)

// RequireAuth validates the bearer access token and stores the identity in
// request locals. Missing or invalid tokens get a JSON 401.
func RequireAuth(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return unauthorized(c, "missing bearer token")
		}

		id, err := tokens.VerifyAccessToken(raw)
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(KeyUserID, id.UserID)
		c.Locals(KeyEmail, id.Email)
		c.Locals(KeyRole, id.Role)
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth and rejects non-admin identities.
func RequireAdmin(c *fiber.Ctx) error {
	role, _ := c.Locals(KeyRole).(string)
	if role != models.ROLE_ADMIN {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin role required",
		})
	}
	return c.Next()
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}

package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/frankariuki86-png/megapark-backend/app/models"
	"github.com/frankariuki86-png/megapark-backend/app/repository"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/mail"
	"github.com/frankariuki86-png/megapark-backend/internal/pkg/token"
)

// AuthController issues and rotates token pairs. Login failures are uniform
// to avoid account enumeration.
type AuthController struct {
	users  repository.UserRepository
	tokens *token.Service
	mailer *mail.Mailer
}

func NewAuthController(users repository.UserRepository, tokens *token.Service, mailer *mail.Mailer) *AuthController {
	return &AuthController{users: users, tokens: tokens, mailer: mailer}
}

func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if len(in.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, err := ac.users.GetByEmail(email); err == nil && existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": "email already registered",
		})
	}

	user, err := models.CreateUser(in.Name, email, in.Password, in.Phone)
	if err != nil {
		return badRequest(c, "invalid registration data")
	}
	if err := ac.users.Create(user); err != nil {
		return writeError(c, err)
	}

	result := ac.mailer.Send(user.Email, mail.TemplateWelcome, map[string]any{
		"Name": user.Name,
	})
	if !result.Sent {
		log.Warnf("[Auth] welcome email failed for %s: %s", user.ID, result.Reason)
	}

	pair, err := ac.tokens.IssueTokenPair(token.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	user, err := ac.users.GetByEmail(strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (!user.IsActive || !user.CheckPassword(in.Password))) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid credentials",
		})
	}
	if err != nil {
		return writeError(c, err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := ac.users.Update(user); err != nil {
		log.Warnf("[Auth] recording last login for %s failed: %v", user.ID, err)
	}

	pair, err := ac.tokens.IssueTokenPair(token.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (ac *AuthController) HandleRefresh(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	pair, err := ac.tokens.RefreshTokenPair(in.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid or expired refresh token",
		})
	}
	return c.JSON(pair)
}

// HandleLogout is stateless: tokens expire on their own and clients drop
// theirs. The endpoint exists so clients have a uniform call to end a session.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

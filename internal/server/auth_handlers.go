package server

import (
	"scribe/internal/models"
	"scribe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetRegisterForm handles GET /register. Returns the field requirements a
// client needs to render a registration form.
func (s *Server) GetRegisterForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"fields": []string{"username", "email", "password"},
		"username_min_length": 3,
		"username_max_length": 30,
		"password_min_length": 8,
	})
}

// GetLoginForm handles GET /login.
func (s *Server) GetLoginForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"fields": []string{"email", "password"},
	})
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// Logout handles GET /logout. Tokens are stateless, so logout is simply
// the client discarding its token; the endpoint exists so clients have a
// uniform place to land.
func (s *Server) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Logged out"})
}

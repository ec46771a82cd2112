package server

import (
	"scribe/internal/models"
	"scribe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetResetRequestForm handles GET /reset_password.
func (s *Server) GetResetRequestForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"fields": []string{"email"},
	})
}

// RequestPasswordReset handles POST /reset_password. The response is the
// same whether or not the email belongs to an account.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req service.RequestResetInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.resetService.RequestReset(c.UserContext(), req); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "If an account with that email exists, a reset link has been sent.",
	})
}

// VerifyPasswordResetToken handles GET /reset_password/:token
func (s *Server) VerifyPasswordResetToken(c *fiber.Ctx) error {
	token := c.Params("token")

	user, err := s.resetService.VerifyToken(c.UserContext(), token)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"email": user.Email,
	})
}

// ResetPassword handles POST /reset_password/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")

	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.resetService.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Token:    token,
		Password: req.Password,
	}); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Your password has been updated. You can now log in."})
}

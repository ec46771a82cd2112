package server

import (
	"io"

	"scribe/internal/models"
	"scribe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAccount handles GET /account
func (s *Server) GetAccount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	user, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateAccount handles POST /account. The request is a multipart form so
// profile fields and an optional avatar image travel together.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	in := service.UpdateAccountInput{
		UserID:   userID,
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
	}

	if fileHeader, ferr := c.FormFile("picture"); ferr == nil && fileHeader != nil {
		f, err := fileHeader.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded file"))
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded file"))
		}

		in.Avatar = &service.AvatarUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Content:     content,
		}
	}

	// The whole form, picture included, is validated and applied as one
	// operation so a rejected request changes nothing.
	user, err := s.userService.UpdateAccount(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scribe/internal/mail"
	"scribe/internal/models"
	"scribe/internal/repository"
	"scribe/internal/resettoken"
	"scribe/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// PasswordResetService issues reset tokens over email and redeems them.
type PasswordResetService struct {
	userRepo repository.UserRepository
	codec    *resettoken.Codec
	sender   mail.Sender
	baseURL  string
}

type RequestResetInput struct {
	Email string `json:"email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func NewPasswordResetService(userRepo repository.UserRepository, codec *resettoken.Codec, sender mail.Sender, baseURL string) *PasswordResetService {
	return &PasswordResetService{
		userRepo: userRepo,
		codec:    codec,
		sender:   sender,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// RequestReset emails a reset link if the address belongs to an account.
// It succeeds either way so callers cannot probe which emails exist.
func (s *PasswordResetService) RequestReset(ctx context.Context, in RequestResetInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token := s.codec.Issue(user.ID, user.Password)
	resetURL := fmt.Sprintf("%s/reset_password/%s", s.baseURL, token)

	if err := s.sender.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		// Failing to send must not leak account existence either; log and move on.
		slog.ErrorContext(ctx, "failed to send password reset email", "error", err)
	}
	return nil
}

// VerifyToken resolves a token to the user it was issued for, or an
// unauthorized error if it is malformed, expired, or already used.
func (s *PasswordResetService) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	userID, ok := s.codec.UserID(token)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	if !s.codec.Validate(token, user.ID, user.Password) {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	return user, nil
}

func (s *PasswordResetService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	user, err := s.VerifyToken(ctx, in.Token)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	// Changing the hash invalidates every token minted against the old one.
	user.Password = string(hashed)
	return s.userRepo.Update(ctx, user)
}

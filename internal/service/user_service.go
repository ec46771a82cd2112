package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
	"scribe/internal/models"
	"scribe/internal/repository"
	"scribe/internal/validation"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultAvatarDir             = "/tmp/scribe/profile_pics"
	DefaultAvatarMaxUploadSizeMB = 10
	AvatarSize                   = 125
	AvatarJPEGQuality            = 82
)

type UserService struct {
	userRepo           repository.UserRepository
	avatarDir          string
	maxUploadSizeBytes int64
}

type UpdateAccountInput struct {
	UserID   uint
	Username string
	Email    string
	Avatar   *AvatarUpload
}

// AvatarUpload carries the raw bytes of an uploaded profile picture.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

func NewUserService(userRepo repository.UserRepository, cfg *config.Config) *UserService {
	avatarDir := DefaultAvatarDir
	maxUploadSizeMB := DefaultAvatarMaxUploadSizeMB

	if cfg != nil {
		if cfg.AvatarDir != "" {
			avatarDir = cfg.AvatarDir
		}
		if cfg.AvatarMaxUploadMB > 0 {
			maxUploadSizeMB = cfg.AvatarMaxUploadMB
		}
	}

	return &UserService{
		userRepo:           userRepo,
		avatarDir:          avatarDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundByNameError("User", username)
	}
	return user, nil
}

// UpdateAccount validates the whole form, picture included, before persisting
// anything, so a rejected request leaves the account exactly as it was. A
// valid picture is scaled down to fit inside a 125x125 box preserving aspect
// ratio (never upscaling) and written to disk under a random name, and the
// account row is updated once with the new fields and filename together.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	// Decode the picture before any write so a bad upload rejects the
	// whole form without a partial change.
	var decoded image.Image
	if in.Avatar != nil {
		decoded, err = s.decodeAvatar(in.Avatar)
		if err != nil {
			return nil, err
		}
	}

	old := user.Avatar
	if decoded != nil {
		filename, err := s.writeThumbnail(decoded)
		if err != nil {
			return nil, err
		}
		user.Avatar = filename
	}

	user.Username = username
	user.Email = email
	if err := s.userRepo.Update(ctx, user); err != nil {
		if decoded != nil && user.Avatar != old {
			os.Remove(filepath.Join(s.avatarDir, user.Avatar))
			user.Avatar = old
		}
		return nil, err
	}

	// Best-effort cleanup of the replaced file.
	if decoded != nil && old != "" && old != user.Avatar {
		os.Remove(filepath.Join(s.avatarDir, old))
	}
	return user, nil
}

// decodeAvatar checks size and type limits and decodes the upload. All
// failures are validation errors; nothing is written.
func (s *UserService) decodeAvatar(in *AvatarUpload) (image.Image, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedAvatarMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	return decoded, nil
}

// writeThumbnail scales the image, encodes it as JPEG, and writes it under a
// random filename. Returns the filename on success.
func (s *UserService) writeThumbnail(decoded image.Image) (string, error) {
	thumbnail := scaleToFit(decoded, AvatarSize, AvatarSize)

	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, thumbnail, &jpeg.Options{Quality: AvatarJPEGQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	filename := uuid.NewString() + ".jpg"
	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	path := filepath.Join(s.avatarDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return filename, nil
}

// scaleToFit shrinks src to fit inside maxWidth x maxHeight, keeping
// aspect ratio. Images already small enough pass through untouched.
func scaleToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedAvatarMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

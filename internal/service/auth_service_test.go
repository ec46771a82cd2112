package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	updateFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn:       func(_ context.Context, _ uint) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
	}
}

const testJWTSecret = "test-jwt-secret-used-only-in-tests"

func TestRegisterHashesPassword(t *testing.T) {
	repo := noopUserRepo()
	var created *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 1
		created = u
		return nil
	}
	svc := NewAuthService(repo, testJWTSecret, time.Hour)

	result, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Password1",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, "Password1", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("Password1")))
	assert.NotEmpty(t, result.Token)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := NewAuthService(noopUserRepo(), testJWTSecret, time.Hour)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestRegisterSurfacesConflict(t *testing.T) {
	repo := noopUserRepo()
	repo.createFn = func(_ context.Context, _ *models.User) error {
		return models.NewConflictError("Username or email already taken")
	}
	svc := NewAuthService(repo, testJWTSecret, time.Hour)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Password1",
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestLoginSucceeds(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, Password: string(hashed)}, nil
	}
	svc := NewAuthService(repo, testJWTSecret, time.Hour)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Password1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, uint(1), result.User.ID)
}

// A login failure must look the same whether the account is missing or the
// password is wrong, so the API cannot be used to enumerate accounts.
func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	require.NoError(t, err)

	unknownRepo := noopUserRepo()
	unknownRepo.getByEmailFn = func(_ context.Context, _ string) (*models.User, error) {
		return nil, nil
	}

	wrongPassRepo := noopUserRepo()
	wrongPassRepo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, Password: string(hashed)}, nil
	}

	_, errUnknown := NewAuthService(unknownRepo, testJWTSecret, time.Hour).
		Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "whatever1A"})
	_, errWrongPass := NewAuthService(wrongPassRepo, testJWTSecret, time.Hour).
		Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "WrongPass1"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())

	var appErr *models.AppError
	require.True(t, errors.As(errUnknown, &appErr))
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

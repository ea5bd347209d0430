package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tiancizhuang/apiserver/internal/store"
	"github.com/tiancizhuang/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService stores credentials and verifies them.
type UserService struct {
	repo UserRepository
	cost int
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register validates the input and stores the username with a bcrypt hash of
// the password. The username is checked before the password.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	if username == "" {
		return types.User{}, required("username", "username required")
	}
	if password == "" {
		return types.User{}, required("password", "password required")
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("failed to check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, &ValidationError{Field: "password", Message: "password too long"}
		}
		return types.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Verify returns the user only when the password matches the stored hash.
func (s *UserService) Verify(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUsernameIncorrect
		}
		return types.User{}, fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrPasswordIncorrect
	}
	return user, nil
}

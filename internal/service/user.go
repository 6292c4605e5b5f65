package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/stockbook/internal/apperror"
	"github.com/sakif/stockbook/internal/auth"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

const (
	MaxUsernameLength = 50
	MaxPasswordLength = 72 // bcrypt input limit
)

// invalidCredentials is returned for unknown users and wrong passwords alike
// so a caller cannot probe which usernames exist.
const invalidCredentials = "invalid username or password"

// UserService handles registration and login.
//
//	UserHandler (HTTP) → UserService → Store.Users
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT, optional)
type UserService struct {
	store     *repository.Store
	passwords *auth.PasswordService
	tokens    *auth.TokenService // nil when no JWT secret is configured
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService creates a UserService. tokens may be nil, in which case
// Login succeeds without issuing a token.
func NewUserService(
	store *repository.Store,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
}

// LoginResult is what a successful Login hands back to the handler.
type LoginResult struct {
	User  model.PublicUser
	Token string // empty when tokens are disabled
}

// Register creates a new account. Usernames are compared case-sensitively.
func (s *UserService) Register(ctx context.Context, username, password, confirmPassword string) (*model.PublicUser, error) {
	// Usernames are stored and matched exactly as sent; only an all-blank
	// name counts as missing.
	if strings.TrimSpace(username) == "" || password == "" || confirmPassword == "" {
		return nil, apperror.ValidationFailed("", "all fields are required")
	}
	if password != confirmPassword {
		return nil, apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if len(password) > MaxPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or less", MaxPasswordLength))
	}

	// Hash outside the lock; bcrypt is slow on purpose.
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/user: %w", err)
	}

	user := model.User{
		ID:           xid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	err = s.store.Exclusive(func() error {
		users, err := s.store.Users.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		if slices.ContainsFunc(users, func(u model.User) bool { return u.Username == username }) {
			return apperror.ValidationFailed("username", "username already taken")
		}
		if err := s.store.Users.Save(ctx, append(users, user)); err != nil {
			return fmt.Errorf("saving users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("service/user", err)
	}

	s.logger.Info("user registered", slog.String("id", user.ID), slog.String("username", username))
	pub := user.Public()
	return &pub, nil
}

// Login checks credentials. Records still holding a clear-text password are
// rehashed with bcrypt on their first successful login, and records without
// an id are given one.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, apperror.ValidationFailed("", "username and password are required")
	}

	users, err := s.store.Users.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading users: %w", err)
	}
	i := slices.IndexFunc(users, func(u model.User) bool { return u.Username == username })
	if i < 0 {
		return nil, apperror.Unauthorized(invalidCredentials)
	}
	user := users[i]

	legacy := user.PasswordHash == ""
	if legacy {
		err = s.passwords.VerifyLegacy(user.LegacyPassword, password)
	} else {
		err = s.passwords.Verify(user.PasswordHash, password)
	}
	if err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	if legacy || user.ID == "" {
		user, err = s.upgradeRecord(ctx, user, password)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
	}

	result := &LoginResult{User: user.Public()}
	if s.tokens != nil {
		result.Token, err = s.tokens.Generate(user.ID, user.Username)
		if err != nil {
			return nil, fmt.Errorf("service/user: generating token for %s: %w", user.ID, err)
		}
	}

	s.logger.Info("user logged in", slog.String("id", user.ID), slog.String("username", username))
	return result, nil
}

// upgradeRecord replaces a clear-text password with a bcrypt hash and fills
// in a missing id, then persists the user list.
func (s *UserService) upgradeRecord(ctx context.Context, user model.User, password string) (model.User, error) {
	if user.PasswordHash == "" {
		hash, err := s.passwords.Hash(password)
		if err != nil {
			return user, err
		}
		user.PasswordHash = hash
		user.LegacyPassword = ""
	}
	if user.ID == "" {
		user.ID = xid.New().String()
	}

	err := s.store.Exclusive(func() error {
		users, err := s.store.Users.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading users: %w", err)
		}
		i := slices.IndexFunc(users, func(u model.User) bool { return u.Username == user.Username })
		if i < 0 {
			return nil // removed concurrently; nothing to upgrade
		}
		if users[i].ID != "" {
			user.ID = users[i].ID
		}
		if users[i].PasswordHash != "" {
			user.PasswordHash = users[i].PasswordHash
		}
		user.CreatedAt = users[i].CreatedAt
		users[i] = user
		if err := s.store.Users.Save(ctx, users); err != nil {
			return fmt.Errorf("saving users: %w", err)
		}
		return nil
	})
	if err != nil {
		return user, err
	}

	s.logger.Info("user record upgraded", slog.String("id", user.ID), slog.String("username", user.Username))
	return user, nil
}

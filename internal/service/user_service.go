package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/scanhub/internal/auth"
	"github.com/yakoovad/scanhub/internal/db"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/repository"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

type UserService struct {
	tx db.Transactor

	users    repository.UserRepository
	tokenTTL time.Duration
}

func NewUserService(tx db.Transactor, tokenTTL time.Duration) *UserService {
	return &UserService{tx: tx, tokenTTL: tokenTTL}
}

type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an account and returns a signed-in session.
func (u *UserService) Register(ctx context.Context, email, password, username string) (*Session, *Error) {
	l := logger.FromContext(ctx)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewError(ErrorCodeValidation, "invalid email address")
	}
	if len(password) < auth.MinPasswordLength {
		return nil, NewError(ErrorCodeValidation, "password must be at least 6 characters")
	}
	if strings.TrimSpace(username) == "" {
		return nil, NewError(ErrorCodeValidation, "please enter a username")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create account")
	}

	created, err := u.users.Create(ctx, &repository.User{
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("registration conflict", zap.String("email", email))
		return nil, NewError(ErrorCodeAlreadyAssigned, "this email or username is already registered")
	}
	if err != nil {
		l.Error("failed to create user", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeStorage, "failed to create account")
	}

	l.Info("user registered", zap.String("user_id", created.ID))

	return u.sessionFor(created)
}

// Login verifies credentials and returns a fresh session.
func (u *UserService) Login(ctx context.Context, email, password string) (*Session, *Error) {
	l := logger.FromContext(ctx)

	user, err := u.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotAuth, "invalid email or password")
	}
	if err != nil {
		l.Error("failed to look up user", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeStorage, "failed to sign in")
	}

	if err = auth.CheckPassword(user.PasswordHash, password); err != nil {
		l.Warn("bad credentials", zap.String("email", email))
		return nil, NewError(ErrorCodeNotAuth, "invalid email or password")
	}

	l.Info("user signed in", zap.String("user_id", user.ID))

	return u.sessionFor(user)
}

func (u *UserService) sessionFor(user *repository.User) (*Session, *Error) {
	token, err := auth.GenerateToken(user.ID, user.Email, u.tokenTTL)
	if err != nil {
		return nil, NewError(ErrorCodeUnspecified, "failed to issue token")
	}

	return &Session{
		Token: token,
		User: &model.User{
			ID:        user.ID,
			Email:     user.Email,
			Username:  user.Username,
			CreatedAt: user.CreatedAt,
		},
	}, nil
}

func (u *UserService) WithUserRepo(r repository.UserRepository) *UserService {
	u.users = r
	return u
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sparkapp/spark-server/internal/auth"
	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/id"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/validation"
)

// AuthService handles registration, login, and token verification.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	logger    *slog.Logger
	validator *validation.Validator
}

// NewAuthService creates a new auth service.
func NewAuthService(st store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     st,
		tokens:    tokens,
		logger:    logger,
		validator: validation.New(),
	}
}

// RegisterRequest contains fields for creating an account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a logged-in user plus their access token.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates an account and returns a fresh session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           id.MustGenerate("user"),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, store.ErrAlreadyExists.WithMessage("an account with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return s.newSession(u)
}

// Login verifies credentials and returns a session. Wrong email and
// wrong password give the same answer.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrUnauthorized.WithMessage("invalid email or password")
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrUnauthorized.WithMessage("invalid email or password")
	}

	s.logger.Info("user logged in", "user_id", u.ID)
	return s.newSession(u)
}

// VerifyToken parses a bearer token and returns the authenticated user
// ID.
func (s *AuthService) VerifyToken(token string) (string, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return "", store.ErrUnauthorized.WithMessage("invalid or expired token").WithCause(err)
	}
	return claims.UserID, nil
}

// GetUser returns the user's account.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *AuthService) newSession(u *domain.User) (*Session, error) {
	token, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:      u,
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.AccessTokenDuration()),
	}, nil
}

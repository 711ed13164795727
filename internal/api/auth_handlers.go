package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register",
		Description: "Creates an account and returns an access token",
		Tags:        []string{"Auth"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Login",
		Description: "Verifies credentials and returns an access token",
		Tags:        []string{"Auth"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Current user",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// UserResponse contains account data in API responses.
type UserResponse struct {
	ID          string    `json:"id" doc:"User ID"`
	Email       string    `json:"email" doc:"Email address"`
	DisplayName string    `json:"display_name" doc:"Display name"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
}

// SessionResponse contains a user plus their access token.
type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token" doc:"PASETO access token"`
	ExpiresAt time.Time    `json:"expires_at" doc:"Token expiry"`
}

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body struct {
		Email       string `json:"email" doc:"Email address"`
		DisplayName string `json:"display_name" doc:"Display name"`
		Password    string `json:"password" doc:"Password (min 8 chars)"`
	}
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body struct {
		Email    string `json:"email" doc:"Email address"`
		Password string `json:"password" doc:"Password"`
	}
}

// CurrentUserInput contains parameters for the current-user endpoint.
type CurrentUserInput struct {
	Authorization string `header:"Authorization"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func sessionOutput(sess *service.Session) *SessionOutput {
	return &SessionOutput{
		Body: SessionResponse{
			User:      userResponse(sess.User),
			Token:     sess.Token,
			ExpiresAt: sess.ExpiresAt,
		},
	}
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*SessionOutput, error) {
	sess, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Email:       input.Body.Email,
		DisplayName: input.Body.DisplayName,
		Password:    input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(sess), nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*SessionOutput, error) {
	sess, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return sessionOutput(sess), nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, input *CurrentUserInput) (*UserOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	u, err := s.services.Auth.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: userResponse(u)}, nil
}

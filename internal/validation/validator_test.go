package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/validation"
)

type testRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"required"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := testRequest{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        testRequest
		wantErrMsg string
	}{
		{
			name: "missing required field",
			req: testRequest{
				Email:    "test@example.com",
				Password: "password123",
			},
			wantErrMsg: "name is required",
		},
		{
			name: "invalid email",
			req: testRequest{
				Email:    "not-an-email",
				Password: "password123",
				Name:     "Test",
			},
			wantErrMsg: "email must be a valid email address",
		},
		{
			name: "password too short",
			req: testRequest{
				Email:    "test@example.com",
				Password: "short",
				Name:     "Test",
			},
			wantErrMsg: "password must be at least 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, store.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}
}

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(testRequest{Password: "password123", Name: "Test"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email")
	assert.NotContains(t, err.Error(), "Email")
}

package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsValidator_ValidateRegister(t *testing.T) {
	validator := NewCredentialsValidator()

	tests := []struct {
		name        string
		userName    string
		email       string
		password    string
		wantErr     bool
		expectedErr string
	}{
		{
			name:     "valid input",
			userName: "Budi Santoso",
			email:    "budi@example.com",
			password: "korolev-12",
		},
		{
			name:        "name too short",
			userName:    "B",
			email:       "budi@example.com",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "name must be at least 2 characters",
		},
		{
			name:        "name too long",
			userName:    strings.Repeat("a", 65),
			email:       "budi@example.com",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "name must be at most 64 characters",
		},
		{
			name:        "empty email",
			userName:    "Budi",
			email:       "",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "email is required",
		},
		{
			name:        "email without at sign",
			userName:    "Budi",
			email:       "budi.example.com",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "email must be a valid address",
		},
		{
			name:        "email ending with at sign",
			userName:    "Budi",
			email:       "budi@",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "email must be a valid address",
		},
		{
			name:        "email with whitespace",
			userName:    "Budi",
			email:       "budi @example.com",
			password:    "korolev-12",
			wantErr:     true,
			expectedErr: "email must not contain whitespace",
		},
		{
			name:        "password too short",
			userName:    "Budi",
			email:       "budi@example.com",
			password:    "short",
			wantErr:     true,
			expectedErr: "password must be at least 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRegister(tt.userName, tt.email, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialsValidator_ValidateLogin(t *testing.T) {
	validator := NewCredentialsValidator()

	assert.NoError(t, validator.ValidateLogin("budi@example.com", "korolev-12"))

	err := validator.ValidateLogin("budi@example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")

	err = validator.ValidateLogin("not-an-email", "korolev-12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid address")
}

package user

import (
	"fmt"
	"strings"
)

const (
	MinNameLen     = 2
	MaxNameLen     = 64
	MinPasswordLen = 8
)

// Validator - интерфейс для валидации пользовательских данных
type Validator interface {
	ValidateRegister(name, email, password string) error
	ValidateLogin(email, password string) error
}

type CredentialsValidator struct{}

// NewCredentialsValidator создает новый валидатор
func NewCredentialsValidator() *CredentialsValidator {
	return &CredentialsValidator{}
}

// ValidateRegister валидирует данные для регистрации
func (v *CredentialsValidator) ValidateRegister(name, email, password string) error {
	if err := v.validateName(name); err != nil {
		return fmt.Errorf("name validation failed: %w", err)
	}

	if err := v.validateEmail(email); err != nil {
		return fmt.Errorf("email validation failed: %w", err)
	}

	if err := v.validatePassword(password); err != nil {
		return fmt.Errorf("password validation failed: %w", err)
	}

	return nil
}

// ValidateLogin валидирует данные для входа
func (v *CredentialsValidator) ValidateLogin(email, password string) error {
	if err := v.validateEmail(email); err != nil {
		return fmt.Errorf("email validation failed: %w", err)
	}

	if password == "" {
		return fmt.Errorf("password is required")
	}

	return nil
}

func (v *CredentialsValidator) validateName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinNameLen {
		return fmt.Errorf("name must be at least %d characters", MinNameLen)
	}

	if len(name) > MaxNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxNameLen)
	}

	return nil
}

func (v *CredentialsValidator) validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email must be a valid address")
	}

	if strings.ContainsAny(email, " \t") {
		return fmt.Errorf("email must not contain whitespace")
	}

	return nil
}

func (v *CredentialsValidator) validatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}

	return nil
}

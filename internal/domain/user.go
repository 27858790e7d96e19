package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type SessionInfo struct {
	State        string `json:"state"`
	User         *User  `json:"user,omitempty"`
	PendingEmail string `json:"pending_email,omitempty"`
}

type AuthResponse struct {
	Message              string `json:"message"`
	Confirmed            bool   `json:"confirmed"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	AccessToken          string `json:"access_token,omitempty"`
	User                 *User  `json:"user,omitempty"`
}

// PasswordPolicy controls how strictly passwords are validated.
type PasswordPolicy struct {
	Strict bool
}

const MinPasswordLength = 6

// SpecialChars is the accepted special character set for strict passwords.
const SpecialChars = "!@#$%^&*"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail lowercases and trims an address. Emails are stored
// normalized, so every lookup path must apply this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the minimum length and, under a strict policy,
// the uppercase/digit/special requirements.
func ValidatePassword(password string, policy PasswordPolicy) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if !policy.Strict {
		return nil
	}
	var hasUpper, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(SpecialChars, c):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: password must contain an uppercase letter", ErrValidation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain a digit", ErrValidation)
	}
	if !hasSpecial {
		return fmt.Errorf("%w: password must contain one of %s", ErrValidation, SpecialChars)
	}
	return nil
}

// ValidateCode requires exactly six digits.
func ValidateCode(code string) error {
	if len(code) != 6 {
		return fmt.Errorf("%w: code must be 6 digits", ErrValidation)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: code must be 6 digits", ErrValidation)
		}
	}
	return nil
}

func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		r.Username = r.Name
	}
}

func (r *RegisterRequest) Validate(policy PasswordPolicy) error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if r.Password != r.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return ValidatePassword(r.Password, policy)
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

func (r *ConfirmRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

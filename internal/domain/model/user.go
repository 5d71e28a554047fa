package model

import (
	"net/mail"
	"strings"
	"time"

	"svmedia/internal/domain"

	"github.com/google/uuid"
)

// User is an account that can sign in; admins may issue and inspect codes.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

func NewUser(id, email, passwordHash string, isAdmin bool) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	if passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}, nil
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

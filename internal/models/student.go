package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

type Student struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	School       string `db:"school" json:"school"`
	ClassLabel   string `db:"class_label" json:"class_label"`
	Age          int    `db:"age" json:"age"`
	PasswordHash string `db:"password_hash" json:"-"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
}

// Registration is the payload students submit to create an account.
// The password travels here in plaintext and is hashed before it ever
// reaches the store.
type Registration struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required,max=120"`
	School     string `json:"school" validate:"required,max=120"`
	ClassLabel string `json:"class_label" validate:"max=32"`
	Age        int    `json:"age" validate:"gte=5,lte=25"`
	Password   string `json:"password" validate:"required,min=6"`
}

func (r *Registration) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// NormalizedEmail lower-cases and trims the registration email. Uniqueness
// in the store is checked against this form, never the raw input.
func (r *Registration) NormalizedEmail() string {
	return NormalizeEmail(r.Email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role determines what a user may do on the platform.
type Role string

// Known roles.
const (
	// RoleAdmin can manage tokens and review company applications.
	RoleAdmin Role = "admin"

	// RoleCompanyOwner belongs to a verified company and may submit
	// emission readings for its token.
	RoleCompanyOwner Role = "company_owner"

	// RoleTrader holds a funded wallet and trades company tokens.
	RoleTrader Role = "trader"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompanyOwner, RoleTrader:
		return true
	}
	return false
}

// User validation errors.
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyUsername       = errors.New("username cannot be empty")
	ErrUsernameTooLong     = errors.New("username must be at most 64 characters long")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrMissingCompany      = errors.New("company owners must have a company symbol")
	ErrUnexpectedCompany   = errors.New("only company owners may have a company symbol")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// User represents a registered user of the platform.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Role          Role      `json:"role"`
	CompanySymbol string    `json:"company_symbol,omitempty"`

	// Password holds the plaintext password temporarily during
	// registration and updates. It is never persisted or serialized.
	Password       string `json:"-"`
	HashedPassword string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a User with a fresh ID and timestamps. The plaintext
// password is carried on the struct; the caller must hash it before storage.
func NewUser(username, password string, role Role, companySymbol string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:            uuid.New(),
		Username:      username,
		Role:          role,
		CompanySymbol: companySymbol,
		Password:      password,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks that the User carries consistent data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Username == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > 64 {
		return ErrUsernameTooLong
	}

	if !u.Role.Valid() {
		return ErrInvalidRole
	}

	// Company symbols only make sense for company owners.
	if u.Role == RoleCompanyOwner && u.CompanySymbol == "" {
		return ErrMissingCompany
	}
	if u.Role != RoleCompanyOwner && u.CompanySymbol != "" {
		return ErrUnexpectedCompany
	}

	if u.Password != "" {
		// bcrypt truncates beyond 72 bytes, so longer passwords are rejected.
		if len(u.Password) < 8 {
			return ErrPasswordTooShort
		}
		if len(u.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		// Users loaded from storage carry only the hash.
		return ErrEmptyPassword
	}

	return nil
}

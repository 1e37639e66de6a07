package model

import (
	"fmt"
	"time"
)

// User represents an account that can hold tickets and join teams.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Enabled      bool       `json:"enabled"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	Profile      *Profile   `json:"profile,omitempty"`
}

// Profile holds the personal details a user fills in after registering.
type Profile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
	Birthday    string `json:"birthday"`
	Address     string `json:"address"`
	Zipcode     string `json:"zipcode"`
	City        string `json:"city"`
	PhoneNumber string `json:"phone_number"`
	Notes       string `json:"notes"`
}

// Roles.
const (
	RoleAdmin     = "admin"
	RoleCommittee = "committee"
	RoleUser      = "user"
)

// Genders accepted in a profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// MinPasswordLength is the shortest password accepted on registration or reset.
const MinPasswordLength = 8

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:     3,
		RoleCommittee: 2,
		RoleUser:      1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCommittee || role == RoleUser
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, MinPasswordLength)
	}
	return nil
}

// Validate checks the required profile fields.
func (p *Profile) Validate() error {
	if p.FirstName == "" || p.LastName == "" || p.DisplayName == "" {
		return fmt.Errorf("%w: first_name, last_name and display_name are required", ErrInvalidProfile)
	}
	switch p.Gender {
	case "", GenderMale, GenderFemale, GenderOther:
	default:
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidProfile, p.Gender)
	}
	if p.Birthday != "" {
		if _, err := time.Parse(time.DateOnly, p.Birthday); err != nil {
			return fmt.Errorf("%w: birthday must be YYYY-MM-DD", ErrInvalidProfile)
		}
	}
	return nil
}

// Package types holds the data structures shared by handlers, services,
// validation and storage. Keeping them in one place prevents import cycles:
// every layer can import types without importing the others.
package types

import "time"

// User is an account able to obtain bearer tokens.
//
// PasswordHash carries the bcrypt hash. The json:"-" tag keeps it out of
// every encoded response; handlers only ever send PublicUser anyway.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the view of a User returned to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public strips the password hash and timestamps.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// NewUser is what the auth service hands to storage on registration.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
}

// Student represents a student record.
//
// BirthDate and Grade are pointers so that "no value" encodes to JSON null
// instead of a zero time or an empty string.
type Student struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	BirthDate *time.Time `json:"birthDate"`
	Grade     *string    `json:"grade"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// StudentPage is one page of the student listing.
type StudentPage struct {
	Items []Student `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// StudentFields is a normalised student ready to be inserted.
type StudentFields struct {
	FirstName string
	LastName  string
	Email     string
	BirthDate *time.Time
	Grade     *string
}

// StudentPatch is a normalised partial update.
//
// A nil pointer (or an unset Optional) leaves the column untouched.
// BirthDate and Grade use Optional because they may also be cleared.
type StudentPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	BirthDate Optional[time.Time]
	Grade     Optional[string]
}

// IsEmpty reports whether the patch would change nothing.
func (p StudentPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil &&
		!p.BirthDate.Set && !p.Grade.Set
}

// RegisterInput is the payload of POST /auth/register.
//
// The validate:"..." tags are evaluated by the go-playground/validator
// package inside internal/validation.
type RegisterInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required,min=2,max=80"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput is the payload of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// StudentCreateInput is the payload of POST /students.
//
// BirthDate stays a string here; the student service turns it into a time.
type StudentCreateInput struct {
	FirstName string  `json:"firstName" validate:"required"`
	LastName  string  `json:"lastName"  validate:"required"`
	Email     string  `json:"email"     validate:"required,email"`
	BirthDate *string `json:"birthDate" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
	Grade     *string `json:"grade"`
}

// StudentUpdateInput is the payload of PUT /students/{id}. Every field is
// optional and remembers whether it was sent, and whether it was sent as null.
type StudentUpdateInput struct {
	FirstName Optional[string] `json:"firstName"`
	LastName  Optional[string] `json:"lastName"`
	Email     Optional[string] `json:"email"`
	BirthDate Optional[string] `json:"birthDate"`
	Grade     Optional[string] `json:"grade"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Identity is the authenticated caller, extracted from a verified token.
type Identity struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

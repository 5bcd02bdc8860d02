// Package storage defines the persistence contract used by the services.
//
// Services depend only on these interfaces, so the concrete backend
// (sqlite for local work, postgres in production) is picked once in
// main.go and tests can pass in-memory fakes.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/students-api/internal/types"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// UserStorage persists accounts.
type UserStorage interface {
	// CreateUser inserts a user and returns it with its generated id and
	// timestamps. A taken email yields ErrDuplicate.
	CreateUser(ctx context.Context, u types.NewUser) (types.User, error)

	// GetUserByEmail returns ErrNotFound when the email is unknown.
	GetUserByEmail(ctx context.Context, email string) (types.User, error)
}

// StudentStorage persists student records.
type StudentStorage interface {
	// ListStudents returns at most limit records starting at offset,
	// newest first.
	ListStudents(ctx context.Context, offset, limit int) ([]types.Student, error)

	CountStudents(ctx context.Context) (int, error)

	// GetStudentByID returns ErrNotFound when id is unknown.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	CreateStudent(ctx context.Context, f types.StudentFields) (types.Student, error)

	// UpdateStudentByID applies the non-empty parts of p, bumps updatedAt
	// and returns the stored record. ErrNotFound when id is unknown.
	UpdateStudentByID(ctx context.Context, id string, p types.StudentPatch) (types.Student, error)

	// DeleteStudentByID removes the record and returns what was deleted.
	DeleteStudentByID(ctx context.Context, id string) (types.Student, error)
}

// Storage is everything a backend must provide.
type Storage interface {
	UserStorage
	StudentStorage

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

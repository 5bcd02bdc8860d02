// Package sqlite implements storage.Storage on a single SQLite file.
//
// It is the default backend for local development and the tests. The
// blank driver import registers "sqlite3" with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/migrations"
	"github.com/aanand-mishra/students-api/internal/types"
)

// SQLite is the SQLite implementation of storage.Storage.
// A single *sql.DB is a pool and safe for concurrent use.
type SQLite struct {
	Db  *sql.DB
	now func() time.Time
}

var _ storage.Storage = (*SQLite)(nil)

// New opens (creating if needed) the database at path and applies the
// schema migrations.
func New(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}
	if err := migrations.Up(ctx, db, migrations.SQLite, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return &SQLite{Db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// dsn enables a busy timeout so concurrent writers wait instead of
// failing with SQLITE_BUSY.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_foreign_keys=on"
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) CreateUser(ctx context.Context, nu types.NewUser) (types.User, error) {
	now := s.now()
	u := types.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.Db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, storage.ErrDuplicate
		}
		return types.User{}, fmt.Errorf("CreateUser: exec: %w", err)
	}
	return u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	var u types.User
	err := s.Db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM users WHERE email = ? LIMIT 1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, storage.ErrNotFound
		}
		return types.User{}, fmt.Errorf("GetUserByEmail: scan: %w", err)
	}
	return u, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

const studentColumns = `id, first_name, last_name, email, birth_date, grade, created_at, updated_at`

func (s *SQLite) ListStudents(ctx context.Context, offset, limit int) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty page encodes as [] rather than null.
	students := make([]types.Student, 0, limit)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}
	return students, nil
}

func (s *SQLite) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := s.Db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountStudents: scan: %w", err)
	}
	return n, nil
}

func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	return getStudent(ctx, s.Db, id)
}

func (s *SQLite) CreateStudent(ctx context.Context, f types.StudentFields) (types.Student, error) {
	now := s.now()
	st := types.Student{
		ID:        uuid.NewString(),
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		BirthDate: f.BirthDate,
		Grade:     f.Grade,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.Db.ExecContext(ctx,
		`INSERT INTO students (`+studentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.FirstName, st.LastName, st.Email, st.BirthDate, st.Grade, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}
	return st, nil
}

// UpdateStudentByID runs the UPDATE and the re-read in one transaction.
// RETURNING is avoided because go-sqlite3 loses the DATETIME column type
// on it and would hand back strings instead of times.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id string, p types.StudentPatch) (types.Student, error) {
	sets := storage.PatchAssignments(p, s.now())
	if len(sets) == 0 {
		return s.GetStudentByID(ctx, id)
	}

	clauses := make([]string, 0, len(sets))
	args := make([]any, 0, len(sets)+1)
	for _, a := range sets {
		clauses = append(clauses, a.Column+" = ?")
		args = append(args, a.Value)
	}
	args = append(args, id)

	var out types.Student
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE students SET `+strings.Join(clauses, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("UpdateStudentByID: exec: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("UpdateStudentByID: rows affected: %w", err)
		} else if n == 0 {
			return storage.ErrNotFound
		}
		out, err = getStudent(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Student{}, err
	}
	return out, nil
}

func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) (types.Student, error) {
	var out types.Student
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if out, err = getStudent(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
			return fmt.Errorf("DeleteStudentByID: exec: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Student{}, err
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getStudent(ctx context.Context, q querier, id string) (types.Student, error) {
	st, err := scanStudent(q.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}
	return st, nil
}

// scanStudent reads the columns of studentColumns, in order.
func scanStudent(row scanner) (types.Student, error) {
	var (
		st        types.Student
		birthDate sql.NullTime
		grade     sql.NullString
	)
	if err := row.Scan(
		&st.ID, &st.FirstName, &st.LastName, &st.Email,
		&birthDate, &grade, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return types.Student{}, err
	}
	if birthDate.Valid {
		t := birthDate.Time.UTC()
		st.BirthDate = &t
	}
	if grade.Valid {
		g := grade.String
		st.Grade = &g
	}
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

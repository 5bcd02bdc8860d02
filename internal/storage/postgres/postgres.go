// Package postgres implements storage.Storage on PostgreSQL through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/migrations"
	"github.com/aanand-mishra/students-api/internal/types"
)

const uniqueViolation = "23505"

type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Storage = (*Postgres)(nil)

// New connects to databaseURL, checks the connection and migrates the schema.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}
	if err := migrations.Up(ctx, db, migrations.Postgres, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated connection pool.
func NewWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *Postgres) Close() error                   { return p.db.Close() }

// DB returns the underlying pool, for pool statistics.
func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) CreateUser(ctx context.Context, nu types.NewUser) (types.User, error) {
	now := p.now()
	u := types.User{}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, email, name, password_hash, created_at, updated_at`,
		uuid.NewString(), nu.Email, nu.Name, nu.PasswordHash, now, now,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, storage.ErrDuplicate
		}
		return types.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (types.User, error) {
	u := types.User{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, storage.ErrNotFound
		}
		return types.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

const studentColumns = `id, first_name, last_name, email, birth_date, grade, created_at, updated_at`

func (p *Postgres) ListStudents(ctx context.Context, offset, limit int) ([]types.Student, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0, limit)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return students, nil
}

func (p *Postgres) CountStudents(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (p *Postgres) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	if !validID(id) {
		return types.Student{}, storage.ErrNotFound
	}
	return p.oneStudent(p.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

func (p *Postgres) CreateStudent(ctx context.Context, f types.StudentFields) (types.Student, error) {
	now := p.now()
	return p.oneStudent(p.db.QueryRowContext(ctx,
		`INSERT INTO students (`+studentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+studentColumns,
		uuid.NewString(), f.FirstName, f.LastName, f.Email, f.BirthDate, f.Grade, now, now))
}

func (p *Postgres) UpdateStudentByID(ctx context.Context, id string, patch types.StudentPatch) (types.Student, error) {
	sets := storage.PatchAssignments(patch, p.now())
	if len(sets) == 0 {
		return p.GetStudentByID(ctx, id)
	}
	if !validID(id) {
		return types.Student{}, storage.ErrNotFound
	}

	clauses := make([]string, 0, len(sets))
	args := make([]any, 0, len(sets)+1)
	for i, a := range sets {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", a.Column, i+1))
		args = append(args, a.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE students SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(clauses, ", "), len(args), studentColumns)
	return p.oneStudent(p.db.QueryRowContext(ctx, query, args...))
}

func (p *Postgres) DeleteStudentByID(ctx context.Context, id string) (types.Student, error) {
	if !validID(id) {
		return types.Student{}, storage.ErrNotFound
	}
	return p.oneStudent(p.db.QueryRowContext(ctx,
		`DELETE FROM students WHERE id = $1 RETURNING `+studentColumns, id))
}

func (p *Postgres) oneStudent(row *sql.Row) (types.Student, error) {
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("db error: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

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
		st.Grade = &grade.String
	}
	st.CreatedAt = st.CreatedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

// validID filters out ids the UUID column would reject with a cast error.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/validation"
)

type StudentService struct {
	students storage.StudentStorage
	logger   *slog.Logger
}

func NewStudentService(students storage.StudentStorage, logger *slog.Logger) *StudentService {
	return &StudentService{students: students, logger: logger}
}

// List returns one page, newest first. page and limit are assumed valid
// (page >= 1, limit > 0). The page and the total are read concurrently
// and without a transaction, so total may be off by concurrent writes.
// A page whose offset does not fit in an int is empty.
func (s *StudentService) List(ctx context.Context, page, limit int) (types.StudentPage, error) {
	var (
		items []types.Student
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	if page-1 <= math.MaxInt/limit {
		g.Go(func() error {
			var err error
			items, err = s.students.ListStudents(gctx, (page-1)*limit, limit)
			return err
		})
	}
	g.Go(func() error {
		var err error
		total, err = s.students.CountStudents(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.StudentPage{}, fmt.Errorf("list students: %w", err)
	}

	if items == nil {
		items = []types.Student{}
	}
	return types.StudentPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get returns nil, nil when no student has this id.
func (s *StudentService) Get(ctx context.Context, id string) (*types.Student, error) {
	st, err := s.students.GetStudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &st, nil
}

func (s *StudentService) Create(ctx context.Context, in types.StudentCreateInput) (types.Student, error) {
	birthDate, err := parseBirthDate(in.BirthDate)
	if err != nil {
		return types.Student{}, err
	}

	st, err := s.students.CreateStudent(ctx, types.StudentFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		BirthDate: birthDate,
		Grade:     in.Grade,
	})
	if err != nil {
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}

	s.logger.DebugContext(ctx, "student created", slog.String("student_id", st.ID))
	return st, nil
}

// Update applies a partial update. An empty patch returns the record as is.
func (s *StudentService) Update(ctx context.Context, id string, in types.StudentUpdateInput) (types.Student, error) {
	patch := types.StudentPatch{
		FirstName: in.FirstName.Ptr(),
		LastName:  in.LastName.Ptr(),
		Email:     in.Email.Ptr(),
		Grade:     in.Grade,
	}
	if in.BirthDate.Set {
		if in.BirthDate.Null {
			patch.BirthDate = types.Null[time.Time]()
		} else {
			t, err := parseBirthDate(&in.BirthDate.Value)
			if err != nil {
				return types.Student{}, err
			}
			patch.BirthDate = types.Some(*t)
		}
	}

	st, err := s.students.UpdateStudentByID(ctx, id, patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Student{}, ErrStudentNotFound
		}
		return types.Student{}, fmt.Errorf("update student: %w", err)
	}
	return st, nil
}

// Delete removes the student and returns the deleted record.
func (s *StudentService) Delete(ctx context.Context, id string) (types.Student, error) {
	st, err := s.students.DeleteStudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Student{}, ErrStudentNotFound
		}
		return types.Student{}, fmt.Errorf("delete student: %w", err)
	}

	s.logger.DebugContext(ctx, "student deleted", slog.String("student_id", st.ID))
	return st, nil
}

// parseBirthDate turns the validated ISO-8601 string into a UTC time.
func parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(validation.TimestampLayout, *raw)
	if err != nil {
		return nil, validation.Invalid("birthDate", "must be an ISO-8601 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

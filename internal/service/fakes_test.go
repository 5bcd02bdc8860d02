package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory storage.Storage used by the service tests.
type memStore struct {
	mu       sync.Mutex
	users    map[string]types.User
	students map[string]types.Student
	clock    time.Time

	failWith error
	calls    map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]types.User{},
		students: map[string]types.Student{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		calls:    map[string]int{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) enter(name string) error {
	m.calls[name]++
	return m.failWith
}

func (m *memStore) CreateUser(_ context.Context, nu types.NewUser) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateUser"); err != nil {
		return types.User{}, err
	}
	if _, ok := m.users[nu.Email]; ok {
		return types.User{}, storage.ErrDuplicate
	}
	now := m.tick()
	u := types.User{ID: uuid.NewString(), Email: nu.Email, Name: nu.Name, PasswordHash: nu.PasswordHash, CreatedAt: now, UpdatedAt: now}
	m.users[nu.Email] = u
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUserByEmail"); err != nil {
		return types.User{}, err
	}
	u, ok := m.users[email]
	if !ok {
		return types.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *memStore) ListStudents(_ context.Context, offset, limit int) ([]types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListStudents"); err != nil {
		return nil, err
	}
	all := make([]types.Student, 0, len(m.students))
	for _, st := range m.students {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []types.Student{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m *memStore) CountStudents(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CountStudents"); err != nil {
		return 0, err
	}
	return len(m.students), nil
}

func (m *memStore) GetStudentByID(_ context.Context, id string) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetStudentByID"); err != nil {
		return types.Student{}, err
	}
	st, ok := m.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	return st, nil
}

func (m *memStore) CreateStudent(_ context.Context, f types.StudentFields) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateStudent"); err != nil {
		return types.Student{}, err
	}
	now := m.tick()
	st := types.Student{
		ID: uuid.NewString(), FirstName: f.FirstName, LastName: f.LastName, Email: f.Email,
		BirthDate: f.BirthDate, Grade: f.Grade, CreatedAt: now, UpdatedAt: now,
	}
	m.students[st.ID] = st
	return st, nil
}

func (m *memStore) UpdateStudentByID(_ context.Context, id string, p types.StudentPatch) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateStudentByID"); err != nil {
		return types.Student{}, err
	}
	st, ok := m.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	if p.IsEmpty() {
		return st, nil
	}
	if p.FirstName != nil {
		st.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		st.LastName = *p.LastName
	}
	if p.Email != nil {
		st.Email = *p.Email
	}
	if p.BirthDate.Set {
		st.BirthDate = p.BirthDate.Ptr()
	}
	if p.Grade.Set {
		st.Grade = p.Grade.Ptr()
	}
	st.UpdatedAt = m.tick()
	m.students[id] = st
	return st, nil
}

func (m *memStore) DeleteStudentByID(_ context.Context, id string) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteStudentByID"); err != nil {
		return types.Student{}, err
	}
	st, ok := m.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	delete(m.students, id)
	return st, nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

var _ storage.Storage = (*memStore)(nil)

// memRevocations is an in-memory RevocationStore.
type memRevocations struct {
	mu      sync.Mutex
	ids     map[string]time.Time
	failErr error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{ids: map[string]time.Time{}}
}

func (r *memRevocations) Revoke(_ context.Context, id string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = exp
	return r.failErr
}

func (r *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return false, r.failErr
	}
	_, ok := r.ids[id]
	return ok, nil
}

var errBoom = errors.New("boom")

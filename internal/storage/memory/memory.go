// Package memory is an in-process storage.Storage backed by a slice.
// Records are lost when the process exits; it serves tests and
// throwaway runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// Store keeps records in memory. A single mutex makes the
// check-then-append sequence atomic.
type Store struct {
	mu       sync.Mutex
	students []types.Student
	byCode   map[string]struct{}
	nextID   int64
	clock    storage.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new records.
func WithClock(clock storage.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		byCode: make(map[string]struct{}),
		nextID: 1,
		clock:  storage.DefaultClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	if err := ctx.Err(); err != nil {
		return types.Student{}, fmt.Errorf("memory.InsertStudent: %w", storage.Unavailable(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[student.AdmissionNumber]; taken {
		return types.Student{}, fmt.Errorf("memory.InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
	}

	student.ID = types.IDFromInt(s.nextID)
	student.Timestamp = s.clock().UTC()
	s.nextID++
	s.byCode[student.AdmissionNumber] = struct{}{}
	s.students = append(s.students, student)
	return student, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.ListStudents: %w", storage.Unavailable(err))
	}

	s.mu.Lock()
	out := make([]types.Student, len(s.students))
	copy(out, s.students)
	s.mu.Unlock()

	storage.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Close() error { return nil }

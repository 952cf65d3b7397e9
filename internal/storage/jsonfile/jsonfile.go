// Package jsonfile stores registrations as a JSON array in a single file.
//
// A flat file has no native uniqueness constraint, so an insert is a
// read-modify-write: load every record, look for the admission number,
// append, rewrite the file. That sequence is made atomic with a mutex
// held for its whole duration, and the rewrite goes through a temporary
// file plus rename so readers never observe a half-written array.
//
// Known limitation: the mutex only covers this process. Two processes
// writing the same file can both pass the existence check and the later
// rename wins. Run a single writer process per file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// record is the on-disk shape of one student.
type record struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	AdmissionNumber string    `json:"admission_number"`
	Timestamp       time.Time `json:"timestamp"`
}

func (r record) student() types.Student {
	return types.Student{
		ID:              types.IDFromInt(r.ID),
		Name:            r.Name,
		Phone:           r.Phone,
		AdmissionNumber: r.AdmissionNumber,
		Timestamp:       r.Timestamp,
	}
}

// Store is a file-backed storage.Storage.
type Store struct {
	mu    sync.Mutex
	path  string
	clock storage.Clock
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

// New returns a Store for path. A missing file is an empty store; an
// unreadable or corrupt one is reported now rather than on first use.
func New(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jsonfile.New: create dir: %w", err)
		}
	}

	s := &Store{path: path, clock: storage.DefaultClock}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.load(); err != nil {
		return nil, fmt.Errorf("jsonfile.New: %w", err)
	}
	return s, nil
}

func (s *Store) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	if err := ctx.Err(); err != nil {
		return types.Student{}, fmt.Errorf("jsonfile.InsertStudent: %w", storage.Unavailable(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return types.Student{}, fmt.Errorf("jsonfile.InsertStudent: %w", err)
	}

	var maxID int64
	for _, r := range records {
		if r.AdmissionNumber == student.AdmissionNumber {
			return types.Student{}, fmt.Errorf("jsonfile.InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
		}
		maxID = max(maxID, r.ID)
	}

	rec := record{
		ID:              maxID + 1,
		Name:            student.Name,
		Phone:           student.Phone,
		AdmissionNumber: student.AdmissionNumber,
		Timestamp:       s.clock().UTC(),
	}
	if err := s.save(append(records, rec)); err != nil {
		return types.Student{}, fmt.Errorf("jsonfile.InsertStudent: %w", err)
	}

	return rec.student(), nil
}

func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("jsonfile.ListStudents: %w", storage.Unavailable(err))
	}

	s.mu.Lock()
	records, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("jsonfile.ListStudents: %w", err)
	}

	students := make([]types.Student, 0, len(records))
	for _, r := range records {
		students = append(students, r.student())
	}
	storage.SortNewestFirst(students)
	return students, nil
}

func (s *Store) Close() error { return nil }

// load reads the whole file. Callers hold s.mu, except New.
func (s *Store) load() ([]record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Unavailable(fmt.Errorf("read %s: %w", s.path, err))
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, storage.Unavailable(fmt.Errorf("decode %s: %w", s.path, err))
	}
	return records, nil
}

// save replaces the file atomically. Callers hold s.mu.
func (s *Store) save(records []record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return storage.Unavailable(fmt.Errorf("encode: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storage.Unavailable(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storage.Unavailable(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return storage.Unavailable(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return storage.Unavailable(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return storage.Unavailable(fmt.Errorf("replace %s: %w", s.path, err))
	}
	return nil
}

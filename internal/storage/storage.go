// Package storage defines the Storage interface: the contract every
// persistence backend must satisfy to hold registrations.
//
// WHY AN INTERFACE?
// ─────────────────
// The registration service does not know or care which technology holds
// the records. SQLite, PostgreSQL, MongoDB, Redis, a flat JSON file and an
// in-memory slice all implement the same two operations with the same
// observable behaviour, so switching backends is a configuration change.
//
// The only invariant a backend enforces is that no two records share an
// admission number, even when two inserts for the same number race.
// How it gets there differs per backend and is documented on each one.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aanand-mishra/class-registration/internal/types"
)

// Sentinel errors returned (optionally wrapped) by every backend.
// The registration service translates them into public outcomes.
var (
	// ErrDuplicateAdmission means a record with the same admission number
	// already exists. Nothing was written.
	ErrDuplicateAdmission = errors.New("admission number already exists")

	// ErrUnavailable marks infrastructure failures: I/O errors, a corrupt
	// backing file, lost connectivity or an expired deadline.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrClosed is returned by backends that were used after Close.
	ErrClosed = errors.New("storage closed")
)

// Storage is the database contract.
type Storage interface {
	// InsertStudent stores the student if no record holds the same
	// admission number. The returned copy carries the ID and Timestamp
	// assigned by the backend; any ID or Timestamp on the input is ignored.
	// Returns ErrDuplicateAdmission (wrapped) when the number is taken.
	InsertStudent(ctx context.Context, student types.Student) (types.Student, error)

	// ListStudents returns every record, most recent first. Records with
	// identical timestamps are ordered by descending ID so the order is
	// deterministic for a given dataset. Returns an empty (non-nil) slice
	// when there are no records.
	ListStudents(ctx context.Context) ([]types.Student, error)

	// Close releases the backend's resources.
	Close() error
}

// Clock returns the current time. Backends take one as an option so
// tests can control the timestamps they assign.
type Clock func() time.Time

// DefaultClock is the clock backends use unless told otherwise.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Unavailable marks err as an infrastructure failure: errors.Is reports
// both ErrUnavailable and the original cause.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &unavailableError{cause: err}
}

type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return ErrUnavailable.Error() + ": " + e.cause.Error()
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrUnavailable, e.cause}
}

// SortNewestFirst orders students by descending timestamp, then by
// descending ID. Backends that cannot sort server-side use it.
func SortNewestFirst(students []types.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return idGreater(a.ID, b.ID)
	})
}

func idGreater(a, b types.ID) bool {
	an, aok := a.Int64()
	bn, bok := b.Int64()
	if aok && bok {
		return an > bn
	}
	return a > b
}

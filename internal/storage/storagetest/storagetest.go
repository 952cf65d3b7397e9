// Package storagetest is a conformance suite shared by every
// storage.Storage backend. Each backend's tests call Run with a factory
// that builds a fresh, empty store.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// Factory returns an empty store stamping records with clock.
// The factory is responsible for registering cleanup with t.
type Factory func(t *testing.T, clock storage.Clock) storage.Storage

// Epoch is the first instant StepClock hands out in the suite.
var Epoch = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

// StepClock returns a clock that starts at start and advances by step
// on every call. Safe for concurrent use.
func StepClock(start time.Time, step time.Duration) storage.Clock {
	var (
		mu  sync.Mutex
		now = start.Add(-step)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

// FixedClock always returns t.
func FixedClock(t time.Time) storage.Clock {
	return func() time.Time { return t }
}

func student(code string) types.Student {
	return types.Student{Name: "Student " + code, Phone: "555-0100", AdmissionNumber: code}
}

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("insert assigns id and timestamp", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))
		ctx := context.Background()

		got, err := s.InsertStudent(ctx, types.Student{
			ID:              "spoofed",
			Name:            "Asha",
			Phone:           "555-0100",
			AdmissionNumber: "CT100",
			Timestamp:       time.Unix(0, 0),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.NotEqual(t, types.ID("spoofed"), got.ID)
		assert.True(t, got.Timestamp.Equal(Epoch), "timestamp %v, want %v", got.Timestamp, Epoch)
		assert.Equal(t, "Asha", got.Name)
		assert.Equal(t, "555-0100", got.Phone)
		assert.Equal(t, "CT100", got.AdmissionNumber)

		list, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, got.ID, list[0].ID)
		assert.True(t, got.Timestamp.Equal(list[0].Timestamp))
		assert.Equal(t, got.AdmissionNumber, list[0].AdmissionNumber)
	})

	t.Run("duplicate admission number is rejected", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))
		ctx := context.Background()

		_, err := s.InsertStudent(ctx, student("CT100"))
		require.NoError(t, err)

		dup := student("CT100")
		dup.Name = "Someone Else"
		_, err = s.InsertStudent(ctx, dup)
		require.ErrorIs(t, err, storage.ErrDuplicateAdmission)

		list, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Student CT100", list[0].Name)
	})

	t.Run("empty store lists an empty slice", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))

		list, err := s.ListStudents(context.Background())
		require.NoError(t, err)
		require.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))
		ctx := context.Background()

		codes := []string{"CT100", "CT101", "AB200", "ZZ999"}
		for _, code := range codes {
			_, err := s.InsertStudent(ctx, student(code))
			require.NoError(t, err)
		}

		list, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, len(codes))
		for i, rec := range list {
			assert.Equal(t, codes[len(codes)-1-i], rec.AdmissionNumber)
			if i > 0 {
				assert.True(t, list[i-1].Timestamp.After(rec.Timestamp))
			}
		}
	})

	t.Run("identical timestamps list in descending id order", func(t *testing.T) {
		s := newStore(t, FixedClock(Epoch))
		ctx := context.Background()

		for _, code := range []string{"AA001", "AA002", "AA003"} {
			_, err := s.InsertStudent(ctx, student(code))
			require.NoError(t, err)
		}

		first, err := s.ListStudents(ctx)
		require.NoError(t, err)
		second, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, first, 3)
		assert.Equal(t, first, second)
		assert.Equal(t, []string{"AA003", "AA002", "AA001"},
			[]string{first[0].AdmissionNumber, first[1].AdmissionNumber, first[2].AdmissionNumber})
	})

	t.Run("concurrent inserts of one code have a single winner", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))
		ctx := context.Background()

		const racers = 8
		var accepted, duplicates atomic.Int32
		var g errgroup.Group
		for i := 0; i < racers; i++ {
			g.Go(func() error {
				_, err := s.InsertStudent(ctx, student("RC777"))
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, storage.ErrDuplicateAdmission):
					duplicates.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), accepted.Load())
		assert.Equal(t, int32(racers-1), duplicates.Load())

		list, err := s.ListStudents(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("concurrent inserts of distinct codes are all stored", func(t *testing.T) {
		s := newStore(t, StepClock(Epoch, time.Second))
		ctx := context.Background()

		const n = 20
		var g errgroup.Group
		for i := 0; i < n; i++ {
			code := fmt.Sprintf("CN%03d", i)
			g.Go(func() error {
				_, err := s.InsertStudent(ctx, student(code))
				return err
			})
		}
		require.NoError(t, g.Wait())

		list, err := s.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, n)

		seen := make(map[types.ID]bool, n)
		for i, rec := range list {
			assert.False(t, seen[rec.ID], "id %s assigned twice", rec.ID)
			seen[rec.ID] = true
			if i > 0 {
				assert.False(t, rec.Timestamp.After(list[i-1].Timestamp))
			}
		}
	})
}

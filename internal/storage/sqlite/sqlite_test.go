package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/storage/storagetest"
	"github.com/aanand-mishra/class-registration/internal/types"
)

func newTestStore(t *testing.T, clock storage.Clock) *SQLite {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "students.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock storage.Clock) storage.Storage {
		return newTestStore(t, clock)
	})
}

func TestInsertStudent_AutoIncrementIDs(t *testing.T) {
	s := newTestStore(t, storage.DefaultClock)
	ctx := context.Background()

	first, err := s.InsertStudent(ctx, types.Student{Name: "Asha", Phone: "555-0100", AdmissionNumber: "CT100"})
	require.NoError(t, err)
	second, err := s.InsertStudent(ctx, types.Student{Name: "Ravi", Phone: "555-0101", AdmissionNumber: "CT101"})
	require.NoError(t, err)

	assert.Equal(t, types.ID("1"), first.ID)
	assert.Equal(t, types.ID("2"), second.ID)
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.InsertStudent(ctx, types.Student{Name: "Asha", Phone: "555-0100", AdmissionNumber: "CT100"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	_, err = reopened.InsertStudent(ctx, types.Student{Name: "Asha", Phone: "555-0100", AdmissionNumber: "CT100"})
	require.ErrorIs(t, err, storage.ErrDuplicateAdmission)

	list, err := reopened.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.InsertStudent(context.Background(), types.Student{Name: "Asha", Phone: "555-0100", AdmissionNumber: "CT100"})
	require.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = s.ListStudents(context.Background())
	require.ErrorIs(t, err, storage.ErrUnavailable)
}

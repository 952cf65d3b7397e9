package sqliteasync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/storage/sqlite"
	"github.com/aanand-mishra/class-registration/internal/storage/storagetest"
	"github.com/aanand-mishra/class-registration/internal/types"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock storage.Clock) storage.Storage {
		s, err := Open(filepath.Join(t.TempDir(), "students.db"), []sqlite.Option{sqlite.WithClock(clock)})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

// blockingStore never answers until release is closed.
type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) InsertStudent(ctx context.Context, s types.Student) (types.Student, error) {
	<-b.release
	return s, nil
}

func (b *blockingStore) ListStudents(ctx context.Context) ([]types.Student, error) {
	<-b.release
	return []types.Student{}, nil
}

func (b *blockingStore) Close() error { return nil }

func TestInsertStudent_DeadlineIsUnavailable(t *testing.T) {
	inner := &blockingStore{release: make(chan struct{})}
	s := New(inner)
	t.Cleanup(func() {
		close(inner.release)
		_ = s.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.InsertStudent(ctx, types.Student{Name: "Asha", Phone: "555-0100", AdmissionNumber: "CT100"})
	require.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose_RejectsFurtherCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "students.db"), nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.ListStudents(context.Background())
	require.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, err, storage.ErrClosed)
}

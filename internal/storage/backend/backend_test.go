package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/class-registration/internal/config"
	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/storage/jsonfile"
	"github.com/aanand-mishra/class-registration/internal/storage/memory"
	redisstore "github.com/aanand-mishra/class-registration/internal/storage/redis"
	"github.com/aanand-mishra/class-registration/internal/storage/sqlite"
	"github.com/aanand-mishra/class-registration/internal/storage/sqliteasync"
	"github.com/aanand-mishra/class-registration/internal/storage/storagetest"
	"github.com/aanand-mishra/class-registration/internal/types"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.Storage
		want any
	}{
		{name: "memory", cfg: config.Storage{Backend: config.BackendMemory}, want: &memory.Store{}},
		{
			name: "sqlite",
			cfg:  config.Storage{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "db", "students.db")},
			want: &sqlite.SQLite{},
		},
		{
			name: "sqlite async",
			cfg:  config.Storage{Backend: config.BackendSQLiteAsync, SQLitePath: filepath.Join(dir, "async.db")},
			want: &sqliteasync.Store{},
		},
		{
			name: "jsonfile",
			cfg:  config.Storage{Backend: config.BackendJSONFile, JSONPath: filepath.Join(dir, "students.json")},
			want: &jsonfile.Store{},
		},
		{
			name: "redis",
			cfg:  config.Storage{Backend: config.BackendRedis, RedisURL: "redis://" + mr.Addr() + "/0", RedisPrefix: "test:"},
			want: &redisstore.Store{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg, storagetest.FixedClock(storagetest.Epoch))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			assert.IsType(t, tt.want, s)

			got, err := s.InsertStudent(context.Background(), types.Student{Name: "Asha", Phone: "1", AdmissionNumber: "CT100"})
			require.NoError(t, err)
			assert.True(t, got.Timestamp.Equal(storagetest.Epoch))

			_, err = s.InsertStudent(context.Background(), types.Student{Name: "Ravi", Phone: "2", AdmissionNumber: "CT100"})
			assert.ErrorIs(t, err, storage.ErrDuplicateAdmission)
		})
	}

	assert.True(t, mr.Exists("test:code:CT100"))
}

func TestOpen_NilClock(t *testing.T) {
	s, err := Open(context.Background(), config.Storage{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)

	got, err := s.InsertStudent(context.Background(), types.Student{Name: "Asha", Phone: "1", AdmissionNumber: "CT100"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got.Timestamp, time.Minute)
}

func TestOpen_Errors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, config.Storage{Backend: "etcd"}, nil)
	assert.ErrorContains(t, err, `unknown backend "etcd"`)

	_, err = Open(ctx, config.Storage{Backend: config.BackendRedis, RedisURL: "not-a-url"}, nil)
	assert.Error(t, err)
}

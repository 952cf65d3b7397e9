// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is also the only embedded backend with a built-in atomic
// uniqueness guarantee: the UNIQUE constraint on admission_number is
// checked by the engine inside the INSERT itself, so two racing
// registrations for the same number can never both succeed.
//
// Importing github.com/mattn/go-sqlite3 registers the "sqlite3" driver
// with database/sql. The package is also used directly to inspect
// constraint errors.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// Schema is idempotent and runs on every startup.
//
//	id               — integer primary key, auto-incremented by SQLite
//	name, phone      — free text, required
//	admission_number — upper-cased code, UNIQUE (the only enforced invariant)
//	timestamp        — assigned at insert, used for listing order
const Schema = `
	CREATE TABLE IF NOT EXISTS students (
		id               INTEGER  PRIMARY KEY AUTOINCREMENT,
		name             TEXT     NOT NULL,
		phone            TEXT     NOT NULL,
		admission_number TEXT     NOT NULL UNIQUE,
		timestamp        DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_students_timestamp
		ON students (timestamp DESC, id DESC);
`

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db    *sql.DB
	clock storage.Clock
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithClock overrides the clock used to stamp new records.
func WithClock(clock storage.Clock) Option {
	return func(s *SQLite) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New opens the SQLite database at path, creates the students table if
// it does not already exist, and returns a ready-to-use *SQLite.
func New(path string, opts ...Option) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	// _busy_timeout makes a second process wait for the write lock
	// instead of failing immediately with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows a single writer. One pooled connection serialises
	// writes inside this process and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	s := &SQLite{Db: db, clock: storage.DefaultClock}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// InsertStudent inserts a new row into the students table.
//
// No existence check is made first: the UNIQUE constraint is the check.
// A constraint violation comes back from the driver as a sqlite3.Error
// with extended code SQLITE_CONSTRAINT_UNIQUE and is reported as
// storage.ErrDuplicateAdmission.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students (name, phone, admission_number, timestamp) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("InsertStudent: prepare: %w", storage.Unavailable(err))
	}
	defer stmt.Close()

	student.Timestamp = s.clock().UTC()

	result, err := stmt.ExecContext(ctx, student.Name, student.Phone, student.AdmissionNumber, student.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, fmt.Errorf("InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
		}
		return types.Student{}, fmt.Errorf("InsertStudent: exec: %w", storage.Unavailable(err))
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("InsertStudent: last insert id: %w", storage.Unavailable(err))
	}

	student.ID = types.IDFromInt(lastID)
	return student, nil
}

// ListStudents returns all rows, newest first.
func (s *SQLite) ListStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, phone, admission_number, timestamp FROM students ORDER BY timestamp DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: prepare: %w", storage.Unavailable(err))
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", storage.Unavailable(err))
	}
	defer rows.Close()

	// Returning [] instead of null in JSON is better API behaviour.
	students := make([]types.Student, 0)

	for rows.Next() {
		var (
			student types.Student
			id      int64
		)
		if err := rows.Scan(
			&id,
			&student.Name,
			&student.Phone,
			&student.AdmissionNumber,
			&student.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", storage.Unavailable(err))
		}
		student.ID = types.IDFromInt(id)
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", storage.Unavailable(err))
	}

	return students, nil
}

// Close closes the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

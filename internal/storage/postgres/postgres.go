// Package postgres provides a PostgreSQL-backed storage.Storage using
// database/sql with the lib/pq driver.
//
// Uniqueness is enforced by the database: admission_number carries a
// UNIQUE constraint and inserts use ON CONFLICT DO NOTHING, so a losing
// racer simply gets no row back. A 23505 unique_violation (for example
// from a constraint added under a different name) is mapped the same way.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// Schema is idempotent and runs on startup.
const Schema = `
	CREATE TABLE IF NOT EXISTS students (
		id               BIGSERIAL   PRIMARY KEY,
		name             TEXT        NOT NULL,
		phone            TEXT        NOT NULL,
		admission_number TEXT        NOT NULL UNIQUE,
		timestamp        TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_students_timestamp
		ON students (timestamp DESC, id DESC);
`

const (
	insertQuery = `
		INSERT INTO students (name, phone, admission_number, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (admission_number) DO NOTHING
		RETURNING id`
	listQuery = `
		SELECT id, name, phone, admission_number, timestamp
		FROM students
		ORDER BY timestamp DESC, id DESC`
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Postgres persists students in PostgreSQL.
type Postgres struct {
	db    *sql.DB
	clock storage.Clock
}

// Option configures a Postgres store.
type Option func(*Postgres)

// WithClock overrides the clock used to stamp new records.
func WithClock(clock storage.Clock) Option {
	return func(p *Postgres) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres.Open: create table: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an existing connection pool. The schema must already exist.
func New(db *sql.DB, opts ...Option) *Postgres {
	p := &Postgres{db: db, clock: storage.DefaultClock}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Postgres) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	// TIMESTAMPTZ keeps microseconds; truncate so the returned record
	// matches what a later listing reads back.
	student.Timestamp = p.clock().UTC().Truncate(time.Microsecond)

	var id int64
	err := p.db.QueryRowContext(ctx, insertQuery,
		student.Name, student.Phone, student.AdmissionNumber, student.Timestamp,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return types.Student{}, fmt.Errorf("InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
	case err != nil:
		return types.Student{}, fmt.Errorf("InsertStudent: %w", storage.Unavailable(err))
	}

	student.ID = types.IDFromInt(id)
	return student, nil
}

func (p *Postgres) ListStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := p.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", storage.Unavailable(err))
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var (
			s  types.Student
			id int64
		)
		if err := rows.Scan(&id, &s.Name, &s.Phone, &s.AdmissionNumber, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", storage.Unavailable(err))
		}
		s.ID = types.IDFromInt(id)
		s.Timestamp = s.Timestamp.UTC()
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", storage.Unavailable(err))
	}
	return students, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Package redis stores registrations in Redis.
//
// Layout, all under a configurable prefix:
//
//	<prefix>seq              INCR counter handing out ids
//	<prefix>code:<CODE>      admission number -> id (the uniqueness index)
//	<prefix>student:<id>     hash with the record fields
//	<prefix>by_time          sorted set, score = timestamp in µs,
//	                         member = zero-padded id
//
// The existence check and every write run inside one Lua script, which
// Redis executes atomically, so concurrent inserts of the same code from
// any number of processes produce exactly one record. The script builds
// the hash key itself, so the layout assumes a single (non-cluster) node.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// DefaultPrefix namespaces every key this package writes.
const DefaultPrefix = "registration:"

// insertScript returns 0 when the code is taken, otherwise the new id.
//
// KEYS[1] code key, KEYS[2] sequence key, KEYS[3] sorted set key
// ARGV    name, phone, code, timestamp, score, student key prefix
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[6] .. id,
	'id', id,
	'name', ARGV[1],
	'phone', ARGV[2],
	'admission_number', ARGV[3],
	'timestamp', ARGV[4])
redis.call('SET', KEYS[1], id)
redis.call('ZADD', KEYS[3], ARGV[5], string.format('%020d', id))
return id
`)

// Store implements storage.Storage on Redis.
type Store struct {
	client *redis.Client
	prefix string
	clock  storage.Clock
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

// WithPrefix changes the key namespace.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	clientOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.Open: parse url: %w", err)
	}

	client := redis.NewClient(clientOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.Open: ping: %w", err)
	}
	return New(client, opts...), nil
}

// New wraps an existing client. Close closes it.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, clock: storage.DefaultClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) codeKey(code string) string { return s.prefix + "code:" + code }
func (s *Store) seqKey() string             { return s.prefix + "seq" }
func (s *Store) timeKey() string            { return s.prefix + "by_time" }
func (s *Store) studentKeyPrefix() string   { return s.prefix + "student:" }

func (s *Store) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	// Scores carry microseconds; keep the record at the same precision.
	student.Timestamp = s.clock().UTC().Truncate(time.Microsecond)

	id, err := insertScript.Run(ctx, s.client,
		[]string{s.codeKey(student.AdmissionNumber), s.seqKey(), s.timeKey()},
		student.Name,
		student.Phone,
		student.AdmissionNumber,
		student.Timestamp.Format(time.RFC3339Nano),
		strconv.FormatInt(student.Timestamp.UnixMicro(), 10),
		s.studentKeyPrefix(),
	).Int64()
	if err != nil {
		return types.Student{}, fmt.Errorf("redis.InsertStudent: %w", storage.Unavailable(err))
	}
	if id == 0 {
		return types.Student{}, fmt.Errorf("redis.InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
	}

	student.ID = types.IDFromInt(id)
	return student, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	// Equal scores come back in reverse member order, and members are
	// zero-padded ids, so ties are already in descending id order.
	members, err := s.client.ZRevRange(ctx, s.timeKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.ListStudents: range: %w", storage.Unavailable(err))
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis.ListStudents: member %q: %w", member, storage.Unavailable(err))
		}
		cmds = append(cmds, pipe.HGetAll(ctx, s.studentKeyPrefix()+strconv.FormatInt(id, 10)))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("redis.ListStudents: fetch: %w", storage.Unavailable(err))
		}
	}

	students := make([]types.Student, 0, len(cmds))
	for _, cmd := range cmds {
		student, err := decode(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("redis.ListStudents: %w", storage.Unavailable(err))
		}
		students = append(students, student)
	}
	return students, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decode(fields map[string]string) (types.Student, error) {
	ts, err := time.Parse(time.RFC3339Nano, fields["timestamp"])
	if err != nil {
		return types.Student{}, fmt.Errorf("decode student %q: timestamp: %w", fields["id"], err)
	}
	return types.Student{
		ID:              types.ID(fields["id"]),
		Name:            fields["name"],
		Phone:           fields["phone"],
		AdmissionNumber: fields["admission_number"],
		Timestamp:       ts.UTC(),
	}, nil
}

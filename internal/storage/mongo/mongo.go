// Package mongo is the document-store backend, built on the official
// MongoDB Go driver.
//
// Inserts read first: if a document with the admission number exists the
// insert is refused without writing. That read-then-write pair alone is
// not atomic, two racing requests can both see "absent". This backend
// therefore also declares a unique index on admission_number, and a
// duplicate key error from the losing InsertOne is reported as
// storage.ErrDuplicateAdmission. The index is what upholds the invariant
// across goroutines and processes; the read only avoids a failed write
// in the common case.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

const (
	// DefaultConnectTimeout bounds Connect and the initial Ping.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultDatabase and DefaultCollection are used when not configured.
	DefaultDatabase   = "registration"
	DefaultCollection = "students"

	uniqueIndexName = "uniq_admission_number"
)

// document is the stored shape of a student.
type document struct {
	ID              primitive.ObjectID `bson:"_id"`
	Name            string             `bson:"name"`
	Phone           string             `bson:"phone"`
	AdmissionNumber string             `bson:"admission_number"`
	Timestamp       time.Time          `bson:"timestamp"`
}

func (d document) student() types.Student {
	return types.Student{
		ID:              types.ID(d.ID.Hex()),
		Name:            d.Name,
		Phone:           d.Phone,
		AdmissionNumber: d.AdmissionNumber,
		Timestamp:       d.Timestamp.UTC(),
	}
}

// Store implements storage.Storage on a MongoDB collection.
type Store struct {
	client *mongo.Client // set only when the Store owns the connection
	coll   *mongo.Collection
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

// Open connects to uri, pings the primary and prepares the collection.
func Open(ctx context.Context, uri, database, collection string, opts ...Option) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(DefaultConnectTimeout).
		SetAppName("class-registration").
		SetRetryWrites(true).
		SetRetryReads(true)

	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo.Open: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo.Open: ping: %w", err)
	}

	s, err := New(ctx, client.Database(database).Collection(collection), opts...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo.Open: %w", err)
	}
	s.client = client
	return s, nil
}

// New builds a Store on an existing collection and ensures its indexes.
// The caller keeps ownership of the client.
func New(ctx context.Context, coll *mongo.Collection, opts ...Option) (*Store, error) {
	s := newStore(coll, opts...)
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(coll *mongo.Collection, opts ...Option) *Store {
	s := &Store{coll: coll, clock: storage.DefaultClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "admission_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(uniqueIndexName),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}

func (s *Store) InsertStudent(ctx context.Context, student types.Student) (types.Student, error) {
	err := s.coll.FindOne(ctx, bson.D{{Key: "admission_number", Value: student.AdmissionNumber}}).Err()
	switch {
	case err == nil:
		return types.Student{}, fmt.Errorf("mongo.InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return types.Student{}, fmt.Errorf("mongo.InsertStudent: lookup: %w", storage.Unavailable(err))
	}

	doc := document{
		ID:              primitive.NewObjectID(),
		Name:            student.Name,
		Phone:           student.Phone,
		AdmissionNumber: student.AdmissionNumber,
		// BSON dates hold milliseconds.
		Timestamp: s.clock().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.Student{}, fmt.Errorf("mongo.InsertStudent: %s: %w", student.AdmissionNumber, storage.ErrDuplicateAdmission)
		}
		return types.Student{}, fmt.Errorf("mongo.InsertStudent: insert: %w", storage.Unavailable(err))
	}

	return doc.student(), nil
}

func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo.ListStudents: find: %w", storage.Unavailable(err))
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo.ListStudents: decode: %w", storage.Unavailable(err))
	}

	students := make([]types.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, d.student())
	}
	return students, nil
}

// Close disconnects the client if the Store opened it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo.Close: %w", err)
	}
	return nil
}

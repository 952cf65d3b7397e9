// Package registration is the intake pipeline: validate a submission,
// then ask storage to insert it if its admission number is free, and
// classify the result as accepted, invalid, duplicate or unavailable.
//
// The service keeps no state between calls. Everything it needs (the
// store, the logger, the metrics, the per-call timeout) is handed to New
// once at startup and only read afterwards.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aanand-mishra/class-registration/internal/metrics"
	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/types"
)

// DefaultTimeout bounds a storage call when none is configured.
const DefaultTimeout = 5 * time.Second

// Service orchestrates Validator and storage.Storage.
type Service struct {
	store     storage.Storage
	validator *Validator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeout bounds each storage call. A call that exceeds it is
// reported as ErrUnavailable.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Service writing to store.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: NewValidator(),
		logger:    slog.Default(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates sub and stores it.
//
// Returns the stored record on success. Errors are one of
// *InvalidInputError (storage not consulted), ErrDuplicate or
// ErrUnavailable; see OutcomeOf.
func (s *Service) Register(ctx context.Context, sub Submission) (types.Student, error) {
	student, err := s.register(ctx, sub)
	s.metrics.ObserveRegistration(string(OutcomeOf(err)))
	return student, err
}

func (s *Service) register(ctx context.Context, sub Submission) (types.Student, error) {
	valid, err := s.validator.Validate(sub)
	if err != nil {
		s.logger.DebugContext(ctx, "registration rejected", slog.String("reason", err.Error()))
		return types.Student{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stored, err := s.store.InsertStudent(ctx, types.Student{
		Name:            valid.Name,
		Phone:           valid.Phone,
		AdmissionNumber: valid.AdmissionNumber,
	})
	switch {
	case errors.Is(err, storage.ErrDuplicateAdmission):
		s.logger.InfoContext(ctx, "duplicate admission number",
			slog.String("admission_number", valid.AdmissionNumber))
		return types.Student{}, ErrDuplicate
	case err != nil:
		s.logger.ErrorContext(ctx, "storing registration failed",
			slog.String("admission_number", valid.AdmissionNumber),
			slog.String("error", err.Error()))
		return types.Student{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.logger.InfoContext(ctx, "student registered",
		slog.String("id", stored.ID.String()),
		slog.String("admission_number", stored.AdmissionNumber))
	return stored, nil
}

// List returns every stored record, most recent first.
// Any storage failure is logged and reported as ErrUnavailable.
func (s *Service) List(ctx context.Context) ([]types.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	students, err := s.store.ListStudents(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing students failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return students, nil
}

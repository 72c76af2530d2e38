package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cardiotrack/internal/events"
	patientmetrics "cardiotrack/internal/patient/metrics"
	"cardiotrack/internal/patient/models"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/platform/validation"
	"cardiotrack/pkg/requestcontext"
)

const (
	msgPatientExists   = "Patient ID already exists"
	msgPatientNotFound = "Patient not found"
	msgCreateFirst     = "Patient not found. Please create profile first."
)

type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByExternalID(ctx context.Context, patientID string) (*models.Profile, error)
	List(ctx context.Context, offset, limit int) ([]*models.Profile, error)
}

type RecordCounter interface {
	CountByProfiles(ctx context.Context, profileIDs []int64) (map[int64]int, error)
}

type EventRecorder interface {
	ProfileCreated(ctx context.Context, e events.ProfileCreated) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages patient profiles.
type Service struct {
	profiles ProfileStore
	counts   RecordCounter
	events   EventRecorder
	tx       TxRunner
	logger   *slog.Logger
	metrics  *patientmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *patientmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEvents(recorder EventRecorder) Option {
	return func(s *Service) {
		s.events = recorder
	}
}

func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(profiles ProfileStore, counts RecordCounter, opts ...Option) *Service {
	s := &Service{
		profiles: profiles,
		counts:   counts,
		tx:       noTx{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProfile validates the input and stores a new profile. A duplicate
// patient id yields a conflict error.
func (s *Service) CreateProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := models.NewProfile(in)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.profiles.Create(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, msgPatientExists)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		}
		if s.events == nil {
			return nil
		}
		return s.events.ProfileCreated(txCtx, events.ProfileCreated{ProfileID: p.ID, PatientID: p.PatientID})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.incrementConflicts()
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile created",
		"patient_id", p.PatientID,
		"profile_id", p.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.incrementCreated()
	return p, nil
}

// FindProfile returns the profile for patientID or a not-found error.
func (s *Service) FindProfile(ctx context.Context, patientID string) (*models.Profile, error) {
	p, err := s.profiles.FindByExternalID(ctx, patientID)
	if err != nil {
		return nil, wrapProfileErr(err, msgPatientNotFound)
	}
	return p, nil
}

// GetProfile returns the profile with its record count.
func (s *Service) GetProfile(ctx context.Context, patientID string) (*models.ProfileSummary, error) {
	p, err := s.FindProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	counts, err := s.counts.CountByProfiles(ctx, []int64{p.ID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count predictions")
	}
	return &models.ProfileSummary{Profile: p, TotalPredictions: counts[p.ID]}, nil
}

// ListProfiles pages through profiles in creation order with record counts.
func (s *Service) ListProfiles(ctx context.Context, offset, limit int) ([]*models.ProfileSummary, error) {
	start := time.Now()
	defer s.observeList(start)

	if offset < 0 {
		return nil, dErrors.Validation([]string{"skip"}, "skip must be at least 0")
	}
	if limit <= 0 || limit > validation.MaxPageSize {
		return nil, dErrors.Validation([]string{"limit"}, "limit must be between 1 and 1000")
	}

	profiles, err := s.profiles.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	ids := make([]int64, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	counts, err := s.counts.CountByProfiles(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count predictions")
	}
	out := make([]*models.ProfileSummary, len(profiles))
	for i, p := range profiles {
		out[i] = &models.ProfileSummary{Profile: p, TotalPredictions: counts[p.ID]}
	}
	return out, nil
}

// ResolveOrCreate satisfies a Reference. An existing patient id is looked up
// and never creates anything; inline data creates a new profile.
func (s *Service) ResolveOrCreate(ctx context.Context, ref models.Reference) (models.Resolution, error) {
	if err := ref.Validate(); err != nil {
		return models.Resolution{}, err
	}
	if ref.PatientID != nil {
		p, err := s.profiles.FindByExternalID(ctx, *ref.PatientID)
		if err != nil {
			return models.Resolution{}, wrapProfileErr(err, msgCreateFirst)
		}
		return models.Resolution{Kind: models.ResolutionExisting, Profile: p}, nil
	}

	p, err := s.CreateProfile(ctx, *ref.ProfileData)
	if err != nil {
		return models.Resolution{}, err
	}
	return models.Resolution{Kind: models.ResolutionCreated, Profile: p}, nil
}

func wrapProfileErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementProfilesCreated()
	}
}

func (s *Service) incrementConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementProfileConflicts()
	}
}

func (s *Service) observeList(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Package service runs an assessment end to end: resolve the patient,
// validate the measurements, score, persist the record and derive the
// response.
//
// Validation of both the patient reference and the measurements happens
// before any write. A profile created inline survives a later scoring or
// persistence failure; that case is logged at WARN with the patient id.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	assessmentmetrics "cardiotrack/internal/assessment/metrics"
	"cardiotrack/internal/events"
	"cardiotrack/internal/patient/models"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/requestcontext"
)

const tracerName = "cardiotrack/assessment"

type ProfileResolver interface {
	ResolveOrCreate(ctx context.Context, ref models.Reference) (models.Resolution, error)
}

type RecordStore interface {
	Append(ctx context.Context, r *models.Record) error
}

// Scorer returns a binary label and the probability of the positive class.
type Scorer interface {
	Score(ctx context.Context, x [models.FeatureCount]float64) (int, float64, error)
}

type EventRecorder interface {
	AssessmentRecorded(ctx context.Context, e events.AssessmentRecorded) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsInvalidator drops cached aggregates after a new record lands.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Request is one assessment submission.
type Request struct {
	Reference   models.Reference
	Medical     models.MedicalFields
	DoctorNotes *string
}

// Result is the derived response for a persisted record.
type Result struct {
	Record          *models.Record
	Profile         *models.Profile
	IsNewPatient    bool
	RiskPercent     float64
	Message         string
	Recommendations []string
}

// Service is the prediction orchestrator.
type Service struct {
	profiles ProfileResolver
	records  RecordStore
	scorer   Scorer
	events   EventRecorder
	tx       TxRunner
	stats    StatsInvalidator
	logger   *slog.Logger
	metrics  *assessmentmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *assessmentmetrics.Metrics) Option {
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

func WithStatsInvalidator(inv StatsInvalidator) Option {
	return func(s *Service) {
		s.stats = inv
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs the orchestrator. The profile resolver, record store and
// scorer are required.
func New(profiles ProfileResolver, records RecordStore, scorer Scorer, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile resolver is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	s := &Service{
		profiles: profiles,
		records:  records,
		scorer:   scorer,
		tx:       passthroughTx{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Assess runs the full pipeline for one submission.
func (s *Service) Assess(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer s.observeAssess(start)

	ctx, span := s.tracer.Start(ctx, "assessment.Assess")
	defer span.End()

	result, err := s.assess(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.incrementFailures(dErrors.CodeOf(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("patient_id", result.Profile.PatientID),
		attribute.String("verdict", string(result.Record.Verdict)),
		attribute.Bool("is_new_patient", result.IsNewPatient),
	)
	return result, nil
}

func (s *Service) assess(ctx context.Context, req Request) (*Result, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	resolution, err := s.resolveProfile(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	profile := resolution.Profile

	label, probability, err := s.score(ctx, req.Medical)
	if err != nil {
		s.warnOrphan(ctx, resolution, err)
		return nil, err
	}
	verdict := models.VerdictFromLabel(label)

	record := &models.Record{
		ProfileID:     profile.ID,
		MedicalFields: req.Medical,
		Verdict:       verdict,
		Probability:   probability,
		DoctorNotes:   req.DoctorNotes,
	}
	if err := s.persist(ctx, profile, record); err != nil {
		s.warnOrphan(ctx, resolution, err)
		return nil, err
	}

	s.invalidateStats(ctx)
	s.incrementAssessments(verdict)
	s.logger.InfoContext(ctx, "assessment recorded",
		"request_id", requestcontext.RequestID(ctx),
		"patient_id", profile.PatientID,
		"record_id", record.ID,
		"verdict", verdict,
		"is_new_patient", resolution.IsNew(),
	)

	return &Result{
		Record:          record,
		Profile:         profile,
		IsNewPatient:    resolution.IsNew(),
		RiskPercent:     models.Percent(probability),
		Message:         Message(verdict),
		Recommendations: Recommendations(verdict),
	}, nil
}

func (s *Service) validate(ctx context.Context, req *Request) error {
	_, span := s.tracer.Start(ctx, "assessment.validate")
	defer span.End()

	if err := req.Reference.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid patient reference")
		return err
	}
	if err := req.Medical.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid medical fields")
		return err
	}
	return nil
}

func (s *Service) resolveProfile(ctx context.Context, ref models.Reference) (models.Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.resolve_profile")
	defer span.End()

	res, err := s.profiles.ResolveOrCreate(ctx, ref)
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return models.Resolution{}, err
	}
	span.SetAttributes(attribute.Bool("created", res.IsNew()))
	return res, nil
}

func (s *Service) score(ctx context.Context, m models.MedicalFields) (int, float64, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.score")
	defer span.End()

	start := time.Now()
	label, p, err := s.scorer.Score(ctx, m.Vector())
	s.observeScoring(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInference, "Risk scoring failed")
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		span.SetStatus(codes.Error, "probability out of range")
		return 0, 0, dErrors.New(dErrors.CodeInference, "Risk scoring returned an invalid probability")
	}
	span.SetAttributes(attribute.Int("label", label), attribute.Float64("probability", p))
	return label, p, nil
}

func (s *Service) persist(ctx context.Context, profile *models.Profile, record *models.Record) error {
	ctx, span := s.tracer.Start(ctx, "assessment.persist")
	defer span.End()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.records.Append(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save prediction")
		}
		if s.events == nil {
			return nil
		}
		return s.events.AssessmentRecorded(txCtx, events.AssessmentRecorded{
			RecordID:    record.ID,
			ProfileID:   profile.ID,
			PatientID:   profile.PatientID,
			Verdict:     string(record.Verdict),
			Probability: record.Probability,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return err
	}
	return nil
}

// warnOrphan logs a profile created in this request that ended up with no
// record.
func (s *Service) warnOrphan(ctx context.Context, res models.Resolution, cause error) {
	if !res.IsNew() {
		return
	}
	s.logger.WarnContext(ctx, "profile created without an assessment record",
		"request_id", requestcontext.RequestID(ctx),
		"patient_id", res.Profile.PatientID,
		"profile_id", res.Profile.ID,
		"error", cause,
	)
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate stats cache",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func (s *Service) incrementAssessments(v models.Verdict) {
	if s.metrics != nil {
		s.metrics.IncrementAssessments(string(v))
	}
}

func (s *Service) incrementFailures(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementFailures(string(code))
	}
}

func (s *Service) observeAssess(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAssess(start)
	}
}

func (s *Service) observeScoring(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveScoring(start)
	}
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

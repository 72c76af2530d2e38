package service

import (
	"context"
	"errors"
	"log/slog"

	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/report/excel"
	reportmodels "cardiotrack/internal/report/models"
	dErrors "cardiotrack/pkg/domain-errors"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/platform/validation"
	"cardiotrack/pkg/requestcontext"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	exportStamp = "20060102_150405"
)

type RecordStore interface {
	FindByID(ctx context.Context, id int64) (*models.Record, error)
	ListAll(ctx context.Context, f history.Filter) ([]*models.Record, error)
	ListRecent(ctx context.Context, offset, limit int) ([]*models.Record, error)
}

type ProfileStore interface {
	FindByID(ctx context.Context, id int64) (*models.Profile, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Profile, error)
}

// PDFRenderer turns one flattened record into a document.
type PDFRenderer interface {
	Render(d reportmodels.ReportData) ([]byte, error)
}

// Document is a generated file ready to be served as an attachment.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service builds reports and exports from stored records.
type Service struct {
	records  RecordStore
	profiles ProfileStore
	pdf      PDFRenderer
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(records RecordStore, profiles ProfileStore, pdf PDFRenderer, opts ...Option) *Service {
	s := &Service{
		records:  records,
		profiles: profiles,
		pdf:      pdf,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report renders the PDF for one record.
func (s *Service) Report(ctx context.Context, recordID int64) (*Document, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Prediction not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load prediction")
	}
	owner, err := s.profiles.FindByID(ctx, rec.ProfileID)
	if err != nil {
		// The foreign key makes a missing owner an invariant violation.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load prediction owner")
	}

	data := reportmodels.NewReportData(owner, rec)
	body, err := s.pdf.Render(data)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render report")
	}
	return &Document{Filename: data.Filename(), ContentType: ContentTypePDF, Body: body}, nil
}

// Recent lists records newest first across all patients, with owners.
func (s *Service) Recent(ctx context.Context, offset, limit int) ([]reportmodels.OwnedRecord, error) {
	if offset < 0 {
		return nil, dErrors.Validation([]string{"skip"}, "skip must be non-negative")
	}
	if limit < 1 || limit > validation.MaxPageSize {
		return nil, dErrors.Validation([]string{"limit"}, "limit must be between 1 and 1000")
	}
	records, err := s.records.ListRecent(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list predictions")
	}
	return s.withOwners(ctx, records)
}

// ExportRoster renders every record newest first.
func (s *Service) ExportRoster(ctx context.Context) (*Document, error) {
	return s.export(ctx, history.Filter{Order: history.OrderNewest}, excel.Roster, "heart_disease_patients_")
}

// ExportHighRisk renders high-risk records, highest probability first.
func (s *Service) ExportHighRisk(ctx context.Context) (*Document, error) {
	return s.export(ctx,
		history.Filter{Verdict: models.VerdictHigh, Order: history.OrderProbability},
		excel.HighRisk, "high_risk_patients_")
}

func (s *Service) export(
	ctx context.Context,
	filter history.Filter,
	render func([]reportmodels.OwnedRecord) ([]byte, error),
	prefix string,
) (*Document, error) {
	records, err := s.records.ListAll(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load predictions")
	}
	rows, err := s.withOwners(ctx, records)
	if err != nil {
		return nil, err
	}
	body, err := render(rows)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render export")
	}
	s.logger.InfoContext(ctx, "export generated",
		"request_id", requestcontext.RequestID(ctx),
		"kind", prefix,
		"rows", len(rows),
	)
	return &Document{
		Filename:    prefix + requestcontext.Now(ctx).Format(exportStamp) + ".xlsx",
		ContentType: ContentTypeXLSX,
		Body:        body,
	}, nil
}

// withOwners resolves owners with one batched lookup.
func (s *Service) withOwners(ctx context.Context, records []*models.Record) ([]reportmodels.OwnedRecord, error) {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ProfileID]; !ok {
			seen[r.ProfileID] = struct{}{}
			ids = append(ids, r.ProfileID)
		}
	}
	owners := map[int64]*models.Profile{}
	if len(ids) > 0 {
		var err error
		owners, err = s.profiles.FindByIDs(ctx, ids)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patients")
		}
	}
	out := make([]reportmodels.OwnedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, reportmodels.OwnedRecord{Record: r, Owner: owners[r.ProfileID]})
	}
	return out, nil
}

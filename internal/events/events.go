// Package events records domain events in the transactional outbox so they
// commit or roll back with the write that produced them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"cardiotrack/internal/events/outbox"
	"cardiotrack/pkg/requestcontext"
)

// Type names a domain event on the wire.
type Type string

const (
	TypeProfileCreated     Type = "profile_created"
	TypeAssessmentRecorded Type = "assessment_recorded"
)

const (
	aggregateProfile = "profile"
	aggregateRecord  = "record"
)

// ProfileCreated is emitted once per new profile.
type ProfileCreated struct {
	ProfileID int64  `json:"profile_id"`
	PatientID string `json:"patient_id"`
}

// AssessmentRecorded is emitted once per appended record.
type AssessmentRecorded struct {
	RecordID    int64   `json:"record_id"`
	ProfileID   int64   `json:"profile_id"`
	PatientID   string  `json:"patient_id"`
	Verdict     string  `json:"prediction"`
	Probability float64 `json:"risk_probability"`
}

// envelope is the JSON published to Kafka.
type envelope struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	Data       any       `json:"data"`
}

// OutboxStore is the persistence port for pending events.
type OutboxStore interface {
	Append(ctx context.Context, entry outbox.Entry) error
}

// Recorder writes events to the outbox. Callers pass the transactional
// context of the write the event describes.
type Recorder struct {
	store  OutboxStore
	logger *slog.Logger
}

func NewRecorder(store OutboxStore, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) ProfileCreated(ctx context.Context, e ProfileCreated) error {
	return r.record(ctx, TypeProfileCreated, aggregateProfile, e.ProfileID, e)
}

func (r *Recorder) AssessmentRecorded(ctx context.Context, e AssessmentRecorded) error {
	return r.record(ctx, TypeAssessmentRecorded, aggregateRecord, e.RecordID, e)
}

func (r *Recorder) record(ctx context.Context, t Type, aggregateType string, aggregateID int64, data any) error {
	id := uuid.New()
	now := requestcontext.Now(ctx)
	payload, err := json.Marshal(envelope{
		ID:         id.String(),
		Type:       t,
		OccurredAt: now,
		RequestID:  requestcontext.RequestID(ctx),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", t, err)
	}
	entry := outbox.Entry{
		ID:            id,
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     string(t),
		Payload:       payload,
		CreatedAt:     now,
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s event: %w", t, err)
	}
	if r.logger != nil {
		r.logger.DebugContext(ctx, "event recorded",
			"event_type", t,
			"aggregate_id", entry.AggregateID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

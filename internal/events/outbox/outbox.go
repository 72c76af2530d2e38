package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one pending or published event in the outbox.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

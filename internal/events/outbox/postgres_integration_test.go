//go:build integration

package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cardiotrack/internal/events/outbox"
	"cardiotrack/internal/platform/database"
	"cardiotrack/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *outbox.PostgresStore
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = outbox.NewPostgres(s.postgres.DB)
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func entry(eventType string, at time.Time) outbox.Entry {
	return outbox.Entry{
		ID:            uuid.New(),
		AggregateType: "record",
		AggregateID:   "1",
		EventType:     eventType,
		Payload:       []byte(`{"ok":true}`),
		CreatedAt:     at,
	}
}

func (s *PostgresOutboxSuite) TestFetchAndMark() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	first := entry("profile_created", base)
	second := entry("assessment_recorded", base.Add(time.Second))
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, first))

	pending, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{first.ID}))

	n, err := s.store.CountUnpublished(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresOutboxSuite) TestAppendRollsBackWithTransaction() {
	ctx := context.Background()
	runner := database.NewTxRunner(s.postgres.DB)

	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.Append(txCtx, entry("profile_created", time.Now())))
		return context.Canceled
	})
	s.Require().ErrorIs(err, context.Canceled)

	n, err := s.store.CountUnpublished(ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardiotrack/internal/events"
	"cardiotrack/internal/events/outbox"
	"cardiotrack/internal/platform/database"
	"cardiotrack/internal/platform/kafka"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msgs []kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func seed(t *testing.T, store *outbox.InMemoryStore, n int) {
	t.Helper()
	rec := events.NewRecorder(store, nil)
	for i := 0; i < n; i++ {
		require.NoError(t, rec.AssessmentRecorded(context.Background(), events.AssessmentRecorded{
			RecordID:    int64(i + 1),
			ProfileID:   7,
			PatientID:   "P-007",
			Verdict:     "High Risk",
			Probability: 0.81,
		}))
	}
}

func TestRelayOncePublishesAndMarks(t *testing.T) {
	store := outbox.NewInMemoryStore()
	seed(t, store, 3)
	pub := &recordingPublisher{}
	m := NewMetrics(prometheus.NewRegistry())
	r := New(store, pub, database.NoTx{}, time.Second, WithBatchSize(2), WithMetrics(m))

	n, err := r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := store.CountUnpublished(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Published))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "record:1", pub.msgs[0].Key)
	assert.Equal(t, "assessment_recorded", pub.msgs[0].Headers["event_type"])
	assert.Contains(t, string(pub.msgs[0].Value), `"patient_id":"P-007"`)
}

func TestRelayOnceLeavesEntriesPendingOnFailure(t *testing.T) {
	store := outbox.NewInMemoryStore()
	seed(t, store, 2)
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := New(store, pub, database.NoTx{}, time.Second)

	_, err := r.RelayOnce(context.Background())
	require.Error(t, err)

	pending, err := store.CountUnpublished(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := outbox.NewInMemoryStore()
	seed(t, store, 1)
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(store, pub, database.NoTx{}, 10*time.Millisecond, WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

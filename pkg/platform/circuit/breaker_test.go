package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	ok   = true
	fail = false
)

func replay(b *Breaker, outcomes ...bool) {
	for _, o := range outcomes {
		if o {
			b.RecordSuccess()
		} else {
			b.RecordFailure()
		}
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New("stats-cache")
	assert.Equal(t, "stats-cache", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		outcomes []bool
		wantOpen bool
	}{
		{
			name:     "below failure threshold",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []bool{fail, fail},
			wantOpen: false,
		},
		{
			name:     "opens at failure threshold",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []bool{fail, fail, fail},
			wantOpen: true,
		},
		{
			name:     "success clears failure streak",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []bool{fail, fail, ok, fail, fail},
			wantOpen: false,
		},
		{
			name:     "stays open until success threshold",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes: []bool{fail, ok},
			wantOpen: true,
		},
		{
			name:     "closes at success threshold",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes: []bool{fail, ok, ok},
			wantOpen: false,
		},
		{
			name:     "failure while open clears success streak",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			outcomes: []bool{fail, ok, ok, fail, ok, ok},
			wantOpen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.opts...)
			replay(b, tt.outcomes...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreakerReportsStateChangesOnce(t *testing.T) {
	b := New("test", WithFailureThreshold(2), WithSuccessThreshold(1))

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.False(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened)

	primary, change := b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	replay(b, fail)
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerAllowsTrialCallAfterCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("test", WithFailureThreshold(1), WithCooldown(10*time.Second))
	b.now = func() time.Time { return now }

	replay(b, fail)
	assert.False(t, b.Allow())

	now = now.Add(9 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow())
}

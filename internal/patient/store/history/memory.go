package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cardiotrack/internal/patient/models"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/requestcontext"
)

// Owners looks up the profile a record belongs to.
type Owners interface {
	FindByID(ctx context.Context, id int64) (*models.Profile, error)
}

// InMemory keeps records in insertion order. Records are copied in and out
// so callers can never mutate stored history.
type InMemory struct {
	mu      sync.RWMutex
	nextID  int64
	records []models.Record
	owners  Owners
}

type Option func(*InMemory)

// WithOwners makes Append reject records whose profile does not exist, the
// same rule the Postgres foreign key enforces.
func WithOwners(o Owners) Option {
	return func(s *InMemory) {
		s.owners = o
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Append(ctx context.Context, r *models.Record) error {
	if !r.Verdict.IsValid() {
		return fmt.Errorf("append record: invalid verdict %q", r.Verdict)
	}
	// Profiles are never deleted, so the owner cannot vanish before the insert.
	if s.owners != nil {
		if _, err := s.owners.FindByID(ctx, r.ProfileID); err != nil {
			return fmt.Errorf("append record: profile %d: %w", r.ProfileID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = requestcontext.Now(ctx)
	s.records = append(s.records, *r)
	return nil
}

func (s *InMemory) ListByProfile(_ context.Context, profileID int64) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0)
	for i := range s.records {
		if s.records[i].ProfileID == profileID {
			r := s.records[i]
			out = append(out, &r)
		}
	}
	sortNewest(out)
	return out, nil
}

func (s *InMemory) LatestByProfile(ctx context.Context, profileID int64) (*models.Record, error) {
	records, err := s.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return records[0], nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			r := s.records[i]
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *InMemory) CountWhere(_ context.Context, verdict models.Verdict) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.records {
		if s.records[i].Verdict == verdict {
			n++
		}
	}
	return n, nil
}

// CountByProfiles returns record counts for each requested profile. Profiles
// without records are present with a zero count.
func (s *InMemory) CountByProfiles(_ context.Context, profileIDs []int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]int, len(profileIDs))
	for _, id := range profileIDs {
		out[id] = 0
	}
	for i := range s.records {
		if _, ok := out[s.records[i].ProfileID]; ok {
			out[s.records[i].ProfileID]++
		}
	}
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context, f Filter) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Record, 0, len(s.records))
	for i := range s.records {
		if f.Verdict != "" && s.records[i].Verdict != f.Verdict {
			continue
		}
		r := s.records[i]
		out = append(out, &r)
	}
	if f.Order == OrderProbability {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Probability != out[j].Probability {
				return out[i].Probability > out[j].Probability
			}
			return newer(out[i], out[j])
		})
	} else {
		sortNewest(out)
	}
	return out, nil
}

func (s *InMemory) ListRecent(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	all, err := s.ListAll(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []*models.Record{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func sortNewest(records []*models.Record) {
	sort.SliceStable(records, func(i, j int) bool { return newer(records[i], records[j]) })
}

func newer(a, b *models.Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

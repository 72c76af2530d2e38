package profile

import (
	"context"
	"sort"
	"sync"

	"cardiotrack/internal/patient/models"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/requestcontext"
)

// InMemory is a map-backed profile store. The uniqueness check and insert
// happen under one lock, mirroring the unique index in Postgres.
type InMemory struct {
	mu          sync.RWMutex
	nextID      int64
	byID        map[int64]*models.Profile
	byPatientID map[string]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:        make(map[int64]*models.Profile),
		byPatientID: make(map[string]int64),
	}
}

func (s *InMemory) Create(ctx context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byPatientID[p.PatientID]; exists {
		return sentinel.ErrConflict
	}
	now := requestcontext.Now(ctx)
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	s.byID[p.ID] = &stored
	s.byPatientID[p.PatientID] = p.ID
	return nil
}

func (s *InMemory) FindByExternalID(_ context.Context, patientID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPatientID[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p := *s.byID[id]
	return &p, nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// FindByIDs returns the profiles that exist among ids, keyed by id.
func (s *InMemory) FindByIDs(_ context.Context, ids []int64) (map[int64]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *InMemory) List(_ context.Context, offset, limit int) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset >= len(ids) {
		return []*models.Profile{}, nil
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*models.Profile, 0, end-offset)
	for _, id := range ids[offset:end] {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

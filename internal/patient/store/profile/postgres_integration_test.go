//go:build integration

package profile_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/profile"
	"cardiotrack/pkg/platform/sentinel"
	"cardiotrack/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *profile.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = profile.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "prediction_history", "patient_profiles")
	s.Require().NoError(err)
}

func newTestProfile(patientID string) *models.Profile {
	email := "patient@example.com"
	return &models.Profile{
		PatientID:   patientID,
		Name:        "Rahim Uddin",
		DateOfBirth: "1965-09-30",
		Gender:      models.GenderMale,
		Phone:       "+8801712345678",
		Email:       &email,
	}
}

// TestConcurrentUniquePatientID verifies that concurrent creation attempts
// with the same patient id result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentUniquePatientID() {
	ctx := context.Background()
	patientID := "P-" + uuid.NewString()[:8]
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestProfile(patientID))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	p := newTestProfile("RT-001")
	s.Require().NoError(s.store.Create(ctx, p))
	s.NotZero(p.ID)

	found, err := s.store.FindByExternalID(ctx, "RT-001")
	s.Require().NoError(err)
	s.Equal(p.ID, found.ID)
	s.Equal(models.GenderMale, found.Gender)
	s.Require().NotNil(found.Email)
	s.Equal("patient@example.com", *found.Email)
	s.Nil(found.Address)

	_, err = s.store.FindByExternalID(ctx, "RT-404")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIDsAndList() {
	ctx := context.Background()
	a := newTestProfile("LIST-A")
	b := newTestProfile("LIST-B")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	byID, err := s.store.FindByIDs(ctx, []int64{a.ID, b.ID})
	s.Require().NoError(err)
	s.Len(byID, 2)

	page, err := s.store.List(ctx, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("LIST-B", page[0].PatientID)
}

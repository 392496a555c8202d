//go:build integration

package sqlstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regulus/internal/workflow/models"
	"regulus/pkg/platform/sentinel"
	"regulus/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "workflow_instances"))
}

func (s *PostgresStoreSuite) TestConcurrentUpdatesOneWins() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	inst := &models.Instance{
		ID:         "wf-pg",
		Type:       models.TypeInvestigation,
		Status:     models.StatusInitiated,
		TotalSteps: 5,
		Metadata:   models.Metadata{"region": "coast"},
		CreatedBy:  "inspector-1",
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	s.Require().NoError(s.store.Create(ctx, inst))

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := *inst
			next.Metadata = models.Metadata{"writer": float64(i)}
			next.Version = 2
			switch err := s.store.Update(ctx, &next, 1); {
			case err == nil:
				wins.Add(1)
			case err == sentinel.ErrConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(15), conflicts.Load())

	got, err := s.store.Get(ctx, "wf-pg")
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.True(got.CreatedAt.Equal(now))
}

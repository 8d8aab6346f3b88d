//go:build integration

package lockout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vaultline/internal/unlock/store/lockout"
	"vaultline/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *lockout.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = lockout.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "challenge_lockouts"))
}

// TestConcurrentFailuresAreCounted verifies the upsert never loses an increment.
func (s *PostgresStoreSuite) TestConcurrentFailuresAreCounted() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	const goroutines = 20

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.RecordFailure(ctx, "owner|card_1", now)
			s.NoError(err)
		}()
	}
	wg.Wait()

	record, err := s.store.Get(ctx, "owner|card_1")
	s.Require().NoError(err)
	s.Equal(goroutines, record.FailureCount)
}

func (s *PostgresStoreSuite) TestLockKeepsConcurrentFailures() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, err := s.store.RecordFailure(ctx, "owner|card_2", now)
	s.Require().NoError(err)
	s.Equal(1, first.FailureCount)
	_, err = s.store.RecordFailure(ctx, "owner|card_2", now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Lock(ctx, "owner|card_2", now.Add(15*time.Minute)))

	got, err := s.store.Get(ctx, "owner|card_2")
	s.Require().NoError(err)
	s.Equal(2, got.FailureCount)
	s.True(got.IsLockedAt(now))
}

func (s *PostgresStoreSuite) TestLockRoundTripAndReset() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.RecordFailure(ctx, "owner|loan_1", now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Lock(ctx, "owner|loan_1", now.Add(-30*time.Minute)))

	got, err := s.store.Get(ctx, "owner|loan_1")
	s.Require().NoError(err)
	s.Require().NotNil(got.LockedUntil)
	s.True(got.LockExpiredAt(now))
	s.Equal(1, got.FailureCount)

	removed, err := s.store.ResetStale(ctx, now.Add(-15*time.Minute), now)
	s.Require().NoError(err)
	s.Equal(1, removed)

	got, err = s.store.Get(ctx, "owner|loan_1")
	s.Require().NoError(err)
	s.Nil(got)
}

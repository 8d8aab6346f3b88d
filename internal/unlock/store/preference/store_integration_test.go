//go:build integration

package preference_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"vaultline/internal/unlock/store/preference"
	"vaultline/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *preference.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = preference.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "preference_sets"))
}

func (s *PostgresStoreSuite) TestAddAndReadBack() {
	ctx := context.Background()
	added, err := s.store.Add(ctx, "owner-1", "unlocked_cards", "card_1")
	s.Require().NoError(err)
	s.True(added)

	added, err = s.store.Add(ctx, "owner-1", "unlocked_cards", "card_1")
	s.Require().NoError(err)
	s.False(added)

	members, err := s.store.Members(ctx, "owner-1", "unlocked_cards")
	s.Require().NoError(err)
	s.Equal([]string{"card_1"}, members)
}

func (s *PostgresStoreSuite) TestMembersByKeys() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, "owner-1", "unlocked_cards", "card_2")
	s.Require().NoError(err)
	_, err = s.store.Add(ctx, "owner-1", "unlocked_loans", "loan_1")
	s.Require().NoError(err)

	sets, err := s.store.MembersByKeys(ctx, "owner-1", []string{"unlocked_cards", "unlocked_loans", "unlocked_other"})
	s.Require().NoError(err)
	s.Equal([]string{"card_2"}, sets["unlocked_cards"])
	s.Equal([]string{"loan_1"}, sets["unlocked_loans"])
	s.Empty(sets["unlocked_other"])
}

func (s *PostgresStoreSuite) TestSurvivesNewStoreInstance() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, "owner-1", "unlocked_loans", "loan_2")
	s.Require().NoError(err)

	reopened := preference.NewPostgres(s.postgres.DB)
	members, err := reopened.Members(ctx, "owner-1", "unlocked_loans")
	s.Require().NoError(err)
	s.Equal([]string{"loan_2"}, members)
}

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *preference.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = preference.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushPrefix(context.Background(), "vaultline:prefs:"))
}

func (s *RedisStoreSuite) TestAddAndReadBack() {
	ctx := context.Background()
	added, err := s.store.Add(ctx, "owner-1", "unlocked_cards", "card_1")
	s.Require().NoError(err)
	s.True(added)
	added, err = s.store.Add(ctx, "owner-1", "unlocked_cards", "card_1")
	s.Require().NoError(err)
	s.False(added)

	keys, err := s.redis.Client.Keys(ctx, "vaultline:prefs:*").Result()
	s.Require().NoError(err)
	s.Equal([]string{"vaultline:prefs:owner-1:unlocked_cards"}, keys)
}

func (s *RedisStoreSuite) TestMembersByKeys() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, "owner-1", "unlocked_loans", "loan_1")
	s.Require().NoError(err)

	sets, err := s.store.MembersByKeys(ctx, "owner-1", []string{"unlocked_cards", "unlocked_loans"})
	s.Require().NoError(err)
	s.Empty(sets["unlocked_cards"])
	s.Equal([]string{"loan_1"}, sets["unlocked_loans"])
}

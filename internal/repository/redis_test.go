package repository

import (
	"context"
	"testing"
	"time"

	"padelbot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.UserState{
			UserID:   123,
			ActionID: "abc",
			Awaiting: "date",
			Inputs:   map[string]string{"club_name": "allin"},
		}

		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.ActionID, got.ActionID)
		assert.Equal(t, state.Awaiting, got.Awaiting)
		assert.Equal(t, "allin", got.Inputs["club_name"])
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		repo.SetState(ctx, &models.UserState{UserID: 456, ActionID: "x"})

		err := repo.ClearState(ctx, 456)
		require.NoError(t, err)

		got, _ := repo.GetState(ctx, 456)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, 777, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, 777, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("Blacklist", func(t *testing.T) {
		blacklisted, err := repo.IsDateBlacklisted(ctx, "allin", "2026-03-25")
		require.NoError(t, err)
		assert.False(t, blacklisted)

		require.NoError(t, repo.BlacklistDate(ctx, "allin", "2026-03-25"))

		blacklisted, err = repo.IsDateBlacklisted(ctx, "allin", "2026-03-25")
		require.NoError(t, err)
		assert.True(t, blacklisted)

		// Scoped per club.
		blacklisted, err = repo.IsDateBlacklisted(ctx, "ballejaune", "2026-03-25")
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"padelbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStateRepository struct {
	err error
}

func (f *failingStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	return nil, f.err
}
func (f *failingStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	return f.err
}
func (f *failingStateRepository) ClearState(ctx context.Context, userID int64) error {
	return f.err
}
func (f *failingStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return false, f.err
}
func (f *failingStateRepository) BlacklistDate(ctx context.Context, club, date string) error {
	return f.err
}
func (f *failingStateRepository) IsDateBlacklisted(ctx context.Context, club, date string) (bool, error) {
	return false, f.err
}

func TestFailoverFallsBackToMemory(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingStateRepository{err: errors.New("redis down")}
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	state := &models.UserState{UserID: 9, ActionID: "a"}
	require.NoError(t, repo.SetState(ctx, state))

	got, err := repo.GetState(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ActionID)

	require.NoError(t, repo.BlacklistDate(ctx, "allin", "2026-05-05"))
	blacklisted, err := repo.IsDateBlacklisted(ctx, "allin", "2026-05-05")
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestFailoverPrefersPrimary(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryStateRepository(time.Hour)
	fallback := NewMemoryStateRepository(time.Hour)
	repo := NewFailoverStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 5, ActionID: "p"}))

	// The value must live in the primary, not the fallback.
	got, err := primary.GetState(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = fallback.GetState(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

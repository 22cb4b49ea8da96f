package repository

import (
	"context"
	"sync/atomic"
	"time"

	"padelbot/internal/domain"
	"padelbot/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository prefers the primary (redis) store and degrades to
// the in-memory fallback on failure, probing the primary again after a
// cooldown.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverStateRepository) primaryUsable() bool {
	if !r.isDown.Load() {
		return true
	}
	// Try to recover after 1 minute.
	if time.Since(r.lastCheck) > time.Minute {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	if r.primaryUsable() {
		state, err := r.primary.GetState(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetState(ctx, userID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	if r.primaryUsable() {
		err := r.primary.SetState(ctx, state)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetState(ctx, state)
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	if r.primaryUsable() {
		err := r.primary.ClearState(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearState(ctx, userID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.primaryUsable() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

func (r *FailoverStateRepository) BlacklistDate(ctx context.Context, club, date string) error {
	if r.primaryUsable() {
		err := r.primary.BlacklistDate(ctx, club, date)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.BlacklistDate(ctx, club, date)
}

func (r *FailoverStateRepository) IsDateBlacklisted(ctx context.Context, club, date string) (bool, error) {
	if r.primaryUsable() {
		blacklisted, err := r.primary.IsDateBlacklisted(ctx, club, date)
		if err == nil {
			r.isDown.Store(false)
			return blacklisted, nil
		}
		r.markDown(err)
	}
	return r.fallback.IsDateBlacklisted(ctx, club, date)
}

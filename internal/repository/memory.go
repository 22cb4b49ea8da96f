package repository

import (
	"context"
	"sync"
	"time"

	"padelbot/internal/models"
)

type storedState struct {
	state     *models.UserState
	expiresAt time.Time
}

type rateWindow struct {
	count    int
	resetsAt time.Time
}

// MemoryStateRepository is the in-process store, used standalone when no
// redis is configured and as the failover fallback otherwise. Everything in
// it, blacklisted dates included, is gone after a restart.
type MemoryStateRepository struct {
	mu        sync.Mutex
	states    map[int64]storedState
	rates     map[int64]rateWindow
	blacklist map[string]struct{}
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		states:    make(map[int64]storedState),
		rates:     make(map[int64]rateWindow),
		blacklist: make(map[string]struct{}),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.states[userID]
	if !ok {
		return nil, nil
	}
	if r.now().After(entry.expiresAt) {
		delete(r.states, userID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.UserID] = storedState{
		state:     state,
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, userID)
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.rates[userID]
	if !ok || now.After(w.resetsAt) {
		w = rateWindow{count: 0, resetsAt: now.Add(window)}
	}
	w.count++
	r.rates[userID] = w
	return w.count <= limit, nil
}

func (r *MemoryStateRepository) BlacklistDate(ctx context.Context, club, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blacklist[blacklistKey(club, date)] = struct{}{}
	return nil
}

func (r *MemoryStateRepository) IsDateBlacklisted(ctx context.Context, club, date string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.blacklist[blacklistKey(club, date)]
	return ok, nil
}

func blacklistKey(club, date string) string {
	return club + ":" + date
}

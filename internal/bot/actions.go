package bot

import (
	"sync"
	"time"

	"padelbot/internal/domain"
	"padelbot/internal/models"

	"github.com/google/uuid"
)

// actionEntry is one registered post action, kept until it is consumed or
// expires.
type actionEntry struct {
	label     string
	action    *domain.Action
	createdAt time.Time
}

// ActionRegistry owns the deferred callbacks behind notification buttons.
// Buttons carry an opaque token; pressing one looks the action up here. A
// bot restart forgets all tokens, matching the in-memory task list.
type ActionRegistry struct {
	mu      sync.Mutex
	entries map[string]*actionEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		entries: make(map[string]*actionEntry),
		ttl:     models.ActionTTLSeconds * time.Second,
		now:     time.Now,
	}
}

// Register stores the action and returns its token.
func (r *ActionRegistry) Register(label string, action *domain.Action) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evict()

	token := uuid.New().String()
	r.entries[token] = &actionEntry{label: label, action: action, createdAt: r.now()}
	return token
}

// Get returns the action and its button label for a token.
func (r *ActionRegistry) Get(token string) (*domain.Action, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok || r.now().Sub(e.createdAt) > r.ttl {
		return nil, "", false
	}
	return e.action, e.label, true
}

func (r *ActionRegistry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

func (r *ActionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evict drops expired entries; callers hold the lock.
func (r *ActionRegistry) evict() {
	cutoff := r.now().Add(-r.ttl)
	for token, e := range r.entries {
		if e.createdAt.Before(cutoff) {
			delete(r.entries, token)
		}
	}
}

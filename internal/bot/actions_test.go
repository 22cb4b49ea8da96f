package bot

import (
	"testing"
	"time"

	"padelbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRegistryRoundTrip(t *testing.T) {
	r := NewActionRegistry()
	action := &domain.Action{Callback: func(map[string]string) error { return nil }}

	token := r.Register("Book 2026-12-25", action)
	require.NotEmpty(t, token)

	got, label, ok := r.Get(token)
	require.True(t, ok)
	assert.Same(t, action, got)
	assert.Equal(t, "Book 2026-12-25", label)

	r.Remove(token)
	_, _, ok = r.Get(token)
	assert.False(t, ok)
}

func TestActionRegistryUnknownToken(t *testing.T) {
	r := NewActionRegistry()
	_, _, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestActionRegistryExpiry(t *testing.T) {
	r := NewActionRegistry()
	now := time.Now()
	r.now = func() time.Time { return now }

	token := r.Register("old", &domain.Action{})

	now = now.Add(25 * time.Hour)
	_, _, ok := r.Get(token)
	assert.False(t, ok, "day-old buttons are dead")

	// Registering evicts the expired entries.
	r.Register("fresh", &domain.Action{})
	assert.Equal(t, 1, r.Len())
}

package models

const (
	// DefaultTickSeconds is the scheduler polling interval.
	DefaultTickSeconds = 3

	// DefaultMaxTries is how many booking attempts a task gets while trying.
	DefaultMaxTries = 5

	// DefaultDurationMinutes is the fixed slot length requested at booking.
	DefaultDurationMinutes = 90

	// SessionTTLSeconds is how long a cached backend session token is reused.
	SessionTTLSeconds = 60 * 60

	// RateLimitMessages is the per-user message budget within the window.
	RateLimitMessages = 20

	// RateLimitWindow is the rate-limit window in seconds.
	RateLimitWindow = 60

	// ActionTTLSeconds is how long a registered post action stays invocable.
	ActionTTLSeconds = 24 * 60 * 60
)

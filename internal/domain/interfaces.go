package domain

import (
	"context"
	"time"

	"padelbot/internal/models"
)

// Notification colors follow the chat convention: red for errors, orange for
// degraded results, green for success.
const (
	ColorError   = "#ff0000"
	ColorWarning = "#ff9100"
	ColorSuccess = "#00ff00"
	ColorInfo    = "#0099ff"
	ColorNeutral = "#909090"
	ColorStartup = "#800080"
)

// InputSpec describes one value a post action needs before it can run.
type InputSpec struct {
	ID          string
	Label       string
	Placeholder string
	Value       string // optional default
}

// Action is a deferred callback attached to a notification button. It is
// stored in the bot's action registry under an opaque token and invoked when
// the matching interaction event arrives.
type Action struct {
	Callback          func(inputs map[string]string) error
	NeedsConfirmation bool
	Announcement      bool
	ExecuteOnlyOnce   bool
	Inputs            []InputSpec
}

// Button is either a static link (URL set) or a deferred action.
type Button struct {
	Label  string
	Emoji  string
	URL    string
	Action *Action
}

// Notification is one user-facing message: title, body, color convention,
// field list and optional buttons. Delivery is fire and forget.
type Notification struct {
	Title   string
	Message string
	Color   string
	Fields  []models.LogField
	Buttons []Button
}

// Notifier delivers notifications to the configured chat destination.
type Notifier interface {
	Notify(n Notification)
}

// ClubBackend is the uniform contract over one reservation website. All
// operations may be called from the scheduler and the auto monitor; each
// public call resets and then populates the backend's execution log.
type ClubBackend interface {
	// DaysBeforeBooking returns how many days before the target date the
	// reservation window opens for this club.
	DaysBeforeBooking() int
	// ListBookings returns all confirmed future bookings, or a nil slice
	// with an error when the query itself failed.
	ListBookings(ctx context.Context) ([]models.RemoteBooking, error)
	// ListAvailableSlots returns open slots matching the exact start time.
	// A nil slice with an error means the query failed; an empty non-nil
	// slice means no slots.
	ListAvailableSlots(ctx context.Context, date, startTime, endTime string) ([]models.AvailableSlot, error)
	// TryBooking attempts to secure exactly one slot for the window.
	TryBooking(ctx context.Context, date, startTime, endTime string) models.ExecResult
	// CancelBooking cancels a previously listed booking.
	CancelBooking(ctx context.Context, booking models.RemoteBooking) bool
	Fullname() string
	Address() string
	// Logs returns the execution log of the last public operation.
	Logs() []models.LogField
}

// StateRepository stores transient bot state: pending action input sessions,
// per-user rate limits and blacklisted proposal dates.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	BlacklistDate(ctx context.Context, club, date string) error
	IsDateBlacklisted(ctx context.Context, club, date string) (bool, error)
}

// EventPublisher decouples task lifecycle reporting from its consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TaskSource enqueues booking tasks; both user commands and the auto monitor
// go through the same path.
type TaskSource interface {
	CreateBookingTask(club, date, time string)
}

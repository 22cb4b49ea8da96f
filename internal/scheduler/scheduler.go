// Package scheduler drives booking tasks through their lifecycle on a fixed
// tick: pending tasks wait for the club's reservation window, trying tasks
// hammer the backend until the tri-state outcome settles them.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/domain"
	"padelbot/internal/events"
	"padelbot/internal/metrics"
	"padelbot/internal/models"

	"github.com/rs/zerolog"
)

// Backends resolves a club key to its configured backend.
type Backends interface {
	Get(name string) (domain.ClubBackend, bool)
	FullName(name string) string
}

type Scheduler struct {
	store    *TaskStore
	clubs    Backends
	notifier domain.Notifier
	events   domain.EventPublisher
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	cfg      config.BotConfig
	tick     time.Duration
	maxTries int
	now      func() time.Time
}

func New(store *TaskStore, clubs Backends, notifier domain.Notifier, publisher domain.EventPublisher,
	m *metrics.Metrics, cfg config.BotConfig, logger zerolog.Logger) *Scheduler {
	tick := time.Duration(cfg.TickSeconds) * time.Second
	if tick <= 0 {
		tick = models.DefaultTickSeconds * time.Second
	}
	maxTries := cfg.MaxTries
	if maxTries <= 0 {
		maxTries = models.DefaultMaxTries
	}
	return &Scheduler{
		store:    store,
		clubs:    clubs,
		notifier: notifier,
		events:   publisher,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		tick:     tick,
		maxTries: maxTries,
		now:      time.Now,
	}
}

// CreateBookingTask registers a new pending booking intent. Both chat
// commands and the auto monitor enter here.
func (s *Scheduler) CreateBookingTask(club, date, startTime string) {
	task := &models.Task{
		Type:     models.TaskTypeBook,
		Club:     club,
		Date:     date,
		Time:     startTime,
		Duration: models.DefaultDurationMinutes,
		Status:   models.TaskPending,
	}
	s.store.Add(task)
	s.logger.Info().Str("club", club).Str("date", date).Str("time", startTime).Msg("Booking task created")
	s.publish(events.EventTaskCreated, task)
	s.notifier.Notify(domain.Notification{
		Title: "Booking task created",
		Message: fmt.Sprintf("Will try to book a slot at %s on %s at %s once the reservation window opens",
			s.clubs.FullName(club), date, startTime),
		Color: domain.ColorInfo,
	})
}

// Start runs the tick loop until ctx is done. The next tick is armed only
// after the previous pass completed, so a slow backend call delays the loop
// instead of piling up ticks.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("tick", s.tick).Int("max_tries", s.maxTries).Msg("Scheduler started")
	defer s.logger.Info().Msg("Scheduler stopped")

	timer := time.NewTimer(s.tick)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.processTasks(ctx)
			timer.Reset(s.tick)
		}
	}
}

func (s *Scheduler) processTasks(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.SchedulerTicks.Inc()
	}
	for _, task := range s.store.List() {
		if task.Terminal() {
			continue
		}
		s.processTask(ctx, task)
	}
}

// processTask isolates one task: a panic abandons that task but never kills
// the tick loop.
func (s *Scheduler) processTask(ctx context.Context, task *models.Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).
				Str("club", task.Club).Str("date", task.Date).
				Msg("Recovered while processing task")
			s.abandon(task, "internal error")
		}
	}()

	switch task.Status {
	case models.TaskPending:
		s.processPending(task)
	case models.TaskTrying:
		s.processTrying(ctx, task)
	}
}

func (s *Scheduler) processPending(task *models.Task) {
	backend, ok := s.clubs.Get(task.Club)
	if !ok {
		s.abandon(task, fmt.Sprintf("unknown club '%s'", task.Club))
		return
	}

	days, err := models.DaysUntil(task.Date, s.now())
	if err != nil {
		s.abandon(task, "unparseable date "+task.Date)
		return
	}
	if days < 0 {
		s.abandon(task, "date is in the past")
		return
	}
	if days > backend.DaysBeforeBooking() {
		// Window not open yet; check again next tick, silently.
		return
	}

	s.setStatus(task, models.TaskTrying)
	s.publish(events.EventTaskTrying, task)
	s.notifier.Notify(domain.Notification{
		Title: "Reservation window is open",
		Message: fmt.Sprintf("Start trying to book a slot at %s on %s at %s",
			s.clubs.FullName(task.Club), task.Date, task.Time),
		Color: domain.ColorInfo,
	})
}

func (s *Scheduler) processTrying(ctx context.Context, task *models.Task) {
	if task.Type != models.TaskTypeBook {
		s.abandon(task, fmt.Sprintf("unknown task type '%s'", task.Type))
		return
	}
	if task.Tries >= s.maxTries {
		s.abandon(task, fmt.Sprintf("still not booked after %d tries", task.Tries))
		return
	}

	backend, ok := s.clubs.Get(task.Club)
	if !ok {
		s.abandon(task, fmt.Sprintf("unknown club '%s'", task.Club))
		return
	}
	endTime, err := s.cfg.NextTime(task.Time)
	if err != nil {
		s.abandon(task, err.Error())
		return
	}

	task.Tries++
	started := time.Now()
	result := backend.TryBooking(ctx, task.Date, task.Time, endTime)
	if s.metrics != nil {
		s.metrics.BackendCallSeconds.WithLabelValues(task.Club, "try_booking").Observe(time.Since(started).Seconds())
		s.metrics.BookingAttempts.WithLabelValues(task.Club, result.String()).Inc()
	}

	fields := backend.Logs()
	s.notifier.Notify(domain.Notification{
		Title: fmt.Sprintf("Attempt %d/%d for %s on %s at %s",
			task.Tries, s.maxTries, s.clubs.FullName(task.Club), task.Date, task.Time),
		Color:  logColor(fields),
		Fields: fields,
	})

	switch result {
	case models.ResultDone:
		task.Result = result.String()
		s.setStatus(task, models.TaskDone)
		s.publish(events.EventTaskDone, task)
		s.notifier.Notify(domain.Notification{
			Title: "Booked!",
			Message: fmt.Sprintf("Got a slot at %s on %s at %s after %d tries",
				s.clubs.FullName(task.Club), task.Date, task.Time, task.Tries),
			Color: domain.ColorSuccess,
		})
	case models.ResultAbort:
		s.abandon(task, "booking reported a permanent failure")
	case models.ResultRetry:
		// Stay in trying; next tick attempts again.
	}
}

func (s *Scheduler) abandon(task *models.Task, reason string) {
	task.Result = reason
	s.setStatus(task, models.TaskAbandoned)
	s.publish(events.EventTaskAbandoned, task)
	s.logger.Warn().Str("club", task.Club).Str("date", task.Date).Str("reason", reason).Msg("Task abandoned")
	s.notifier.Notify(domain.Notification{
		Title: "Booking task abandoned",
		Message: fmt.Sprintf("Gave up on %s %s at %s: %s",
			s.clubs.FullName(task.Club), task.Date, task.Time, reason),
		Color: domain.ColorWarning,
	})
}

func (s *Scheduler) setStatus(task *models.Task, status string) {
	if s.metrics != nil {
		s.metrics.TaskTransitions.WithLabelValues(task.Status, status).Inc()
	}
	task.Status = status
}

func (s *Scheduler) publish(eventType string, task *models.Task) {
	if s.events == nil {
		return
	}
	err := s.events.PublishJSON(eventType, events.TaskEventPayload{
		Club:   task.Club,
		Date:   task.Date,
		Time:   task.Time,
		Tries:  task.Tries,
		Status: task.Status,
		Result: task.Result,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Error publishing task event")
	}
}

// logColor aggregates an execution log into a single severity: any error
// beats a success, which beats plain notices.
func logColor(fields []models.LogField) string {
	color := domain.ColorInfo
	for _, f := range fields {
		switch {
		case strings.HasSuffix(f.Name, "ERROR"):
			return domain.ColorError
		case strings.HasSuffix(f.Name, "OK"):
			color = domain.ColorSuccess
		}
	}
	return color
}

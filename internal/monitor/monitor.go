// Package monitor implements the per-club availability watcher: on a fixed
// interval it looks a few days ahead for open slots at the preferred time,
// proposes them in chat with one-tap booking, and reminds about tomorrow's
// booking.
package monitor

import (
	"context"
	"fmt"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/domain"
	"padelbot/internal/metrics"
	"padelbot/internal/models"

	"github.com/rs/zerolog"
)

const defaultRunEveryMinutes = 60

// rebookOffsetDays is how far ahead the one-tap re-book of tomorrow's slot
// lands: same weekday next week.
const rebookOffsetDays = 8

type Monitor struct {
	club       string
	backend    domain.ClubBackend
	repo       domain.StateRepository
	notifier   domain.Notifier
	tasks      domain.TaskSource
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	botCfg     config.BotConfig
	interval   time.Duration
	daysOffset []int
	targetTime string
	now        func() time.Time
}

func New(club string, backend domain.ClubBackend, clubCfg config.ClubConfig, botCfg config.BotConfig,
	repo domain.StateRepository, notifier domain.Notifier, tasks domain.TaskSource,
	m *metrics.Metrics, logger zerolog.Logger) *Monitor {
	every := clubCfg.AutoMonitor.RunEveryMinutes
	if every <= 0 {
		every = defaultRunEveryMinutes
	}
	target := clubCfg.AutoMonitor.TargetTime
	if target == "" {
		target = botCfg.DefaultTime
	}
	return &Monitor{
		club:       club,
		backend:    backend,
		repo:       repo,
		notifier:   notifier,
		tasks:      tasks,
		metrics:    m,
		logger:     logger,
		botCfg:     botCfg,
		interval:   time.Duration(every) * time.Minute,
		daysOffset: clubCfg.AutoMonitor.DaysOffset,
		targetTime: target,
		now:        time.Now,
	}
}

// Start runs the watch loop until ctx is done. Like the scheduler tick, the
// next run is armed only after the previous one finished.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info().Str("club", m.club).Dur("interval", m.interval).
		Str("target_time", m.targetTime).Ints("days_offset", m.daysOffset).
		Msg("Auto monitor started")
	defer m.logger.Info().Str("club", m.club).Msg("Auto monitor stopped")

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.RunOnce(ctx, false)
			timer.Reset(m.interval)
		}
	}
}

// RunOnce performs one watch cycle. With tellWhenNoSlot (the manual chat
// trigger) an empty result is reported instead of staying silent.
func (m *Monitor) RunOnce(ctx context.Context, tellWhenNoSlot bool) {
	bookings, err := m.backend.ListBookings(ctx)
	if err != nil {
		m.cycle("error")
		m.notifier.Notify(domain.Notification{
			Title:   fmt.Sprintf("Cannot check %s bookings", m.backend.Fullname()),
			Message: err.Error(),
			Color:   domain.ColorError,
			Fields:  m.backend.Logs(),
		})
		return
	}

	booked := make(map[string]models.RemoteBooking, len(bookings))
	for _, bk := range bookings {
		booked[bk.Date] = bk
	}

	tomorrow := models.DateWithOffset(m.now(), 1)
	if bk, ok := booked[tomorrow]; ok {
		m.remindTomorrow(bk)
	}

	var fields []models.LogField
	var buttons []domain.Button
	for _, offset := range m.daysOffset {
		date := models.DateWithOffset(m.now(), offset)
		if _, ok := booked[date]; ok {
			continue
		}
		skip, err := m.repo.IsDateBlacklisted(ctx, m.club, date)
		if err != nil {
			m.logger.Error().Err(err).Str("date", date).Msg("Error checking blacklist, proposing anyway")
		}
		if skip {
			continue
		}

		endTime, err := m.botCfg.NextTime(m.targetTime)
		if err != nil {
			m.logger.Error().Err(err).Str("time", m.targetTime).Msg("Bad monitor target time")
			m.cycle("error")
			return
		}
		slots, err := m.backend.ListAvailableSlots(ctx, date, m.targetTime, endTime)
		if err != nil {
			m.cycle("error")
			m.notifier.Notify(domain.Notification{
				Title:   fmt.Sprintf("Cannot check %s availabilities", m.backend.Fullname()),
				Message: err.Error(),
				Color:   domain.ColorError,
				Fields:  m.backend.Logs(),
			})
			return
		}
		if len(slots) == 0 {
			continue
		}

		// One proposal per date: the backend already ranked out weekends
		// and off-target times, the first slot is representative.
		slot := slots[0]
		fields = append(fields, models.LogField{
			Name:  date,
			Value: fmt.Sprintf("%s at %s", slot.Playground, m.targetTime),
		})
		buttons = append(buttons,
			domain.Button{
				Label: "Book " + date,
				Emoji: "📅",
				Action: &domain.Action{
					Announcement:    true,
					ExecuteOnlyOnce: true,
					Callback:        m.bookCallback(date),
				},
			},
			domain.Button{
				Label: "Blacklist " + date,
				Emoji: "🚫",
				Action: &domain.Action{
					ExecuteOnlyOnce: true,
					Callback:        m.blacklistCallback(date),
				},
			},
		)
	}

	if len(fields) == 0 {
		m.cycle("no_slots")
		if tellWhenNoSlot {
			m.notifier.Notify(domain.Notification{
				Title:   fmt.Sprintf("No available slot at %s", m.backend.Fullname()),
				Message: fmt.Sprintf("Nothing open at %s on the watched days", m.targetTime),
				Color:   domain.ColorNeutral,
			})
		}
		return
	}

	m.cycle("proposed")
	m.notifier.Notify(domain.Notification{
		Title:   fmt.Sprintf("Available slots at %s", m.backend.Fullname()),
		Message: fmt.Sprintf("Slots open at %s, book or mute them", m.targetTime),
		Color:   domain.ColorInfo,
		Fields:  fields,
		Buttons: buttons,
	})
}

func (m *Monitor) remindTomorrow(bk models.RemoteBooking) {
	rebookDate := models.DateWithOffset(m.now(), rebookOffsetDays)
	m.notifier.Notify(domain.Notification{
		Title:   "Booking tomorrow: " + bk.Title,
		Message: bk.Description,
		Color:   domain.ColorInfo,
		Buttons: []domain.Button{
			{
				Label: "Re-book on " + rebookDate,
				Emoji: "🔁",
				Action: &domain.Action{
					Announcement:    true,
					ExecuteOnlyOnce: true,
					Callback:        m.bookCallback(rebookDate),
				},
			},
			{
				Label: "Cancel it",
				Emoji: "❌",
				Action: &domain.Action{
					NeedsConfirmation: true,
					ExecuteOnlyOnce:   true,
					Callback:          m.cancelCallback(bk),
				},
			},
		},
	})
}

func (m *Monitor) bookCallback(date string) func(map[string]string) error {
	return func(map[string]string) error {
		m.tasks.CreateBookingTask(m.club, date, m.targetTime)
		return nil
	}
}

func (m *Monitor) blacklistCallback(date string) func(map[string]string) error {
	return func(map[string]string) error {
		if err := m.repo.BlacklistDate(context.Background(), m.club, date); err != nil {
			return fmt.Errorf("blacklist %s: %w", date, err)
		}
		m.notifier.Notify(domain.Notification{
			Title:   "Date muted",
			Message: fmt.Sprintf("%s will no longer be proposed for %s", date, m.backend.Fullname()),
			Color:   domain.ColorNeutral,
		})
		return nil
	}
}

func (m *Monitor) cancelCallback(bk models.RemoteBooking) func(map[string]string) error {
	return func(map[string]string) error {
		if !m.backend.CancelBooking(context.Background(), bk) {
			m.notifier.Notify(domain.Notification{
				Title:   "Cancellation failed",
				Message: "Could not cancel " + bk.Title,
				Color:   domain.ColorError,
				Fields:  m.backend.Logs(),
			})
			return fmt.Errorf("cancel booking %s", bk.ID)
		}
		m.notifier.Notify(domain.Notification{
			Title:   "Booking canceled",
			Message: bk.Title + " is canceled",
			Color:   domain.ColorSuccess,
		})
		return nil
	}
}

func (m *Monitor) cycle(outcome string) {
	if m.metrics != nil {
		m.metrics.MonitorCycles.WithLabelValues(m.club, outcome).Inc()
	}
}

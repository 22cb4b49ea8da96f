// Package bot is the chat surface: it turns Telegram commands into booking
// tasks, renders notifications and dispatches button presses to their
// registered post actions.
package bot

import (
	"context"
	"fmt"
	"time"

	"padelbot/internal/config"
	"padelbot/internal/domain"
	"padelbot/internal/metrics"
	"padelbot/internal/models"
	"padelbot/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backends is the club lookup the chat commands need.
type Backends interface {
	Get(name string) (domain.ClubBackend, bool)
	Names() []string
	FullName(name string) string
}

// MonitorTrigger runs one availability watch cycle on demand.
type MonitorTrigger interface {
	RunOnce(ctx context.Context, tellWhenNoSlot bool)
}

type Bot struct {
	tg       domain.TelegramService
	config   *config.Config
	clubCfgs map[string]config.ClubConfig
	clubs    Backends
	store    *scheduler.TaskStore
	tasks    domain.TaskSource
	repo     domain.StateRepository
	notifier *Notifier
	actions  *ActionRegistry
	monitors map[string]MonitorTrigger
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
}

func NewBot(
	tg domain.TelegramService,
	cfg *config.Config,
	clubCfgs map[string]config.ClubConfig,
	clubs Backends,
	store *scheduler.TaskStore,
	tasks domain.TaskSource,
	repo domain.StateRepository,
	notifier *Notifier,
	actions *ActionRegistry,
	monitors map[string]MonitorTrigger,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Bot {
	return &Bot{
		tg:       tg,
		config:   cfg,
		clubCfgs: clubCfgs,
		clubs:    clubs,
		store:    store,
		tasks:    tasks,
		repo:     repo,
		notifier: notifier,
		actions:  actions,
		monitors: monitors,
		metrics:  m,
		logger:   logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessing.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID, chatID int64
		if update.Message != nil {
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
			if update.CallbackQuery.Message != nil {
				chatID = update.CallbackQuery.Message.Chat.ID
			}
		}
		if userID == 0 {
			return
		}

		// Single-chat bot: anything outside the configured chat is noise.
		if chatID != 0 && chatID != b.config.Telegram.ChatID {
			l.Debug().Int64("chat_id", chatID).Msg("Ignoring update from foreign chat")
			return
		}

		allowed, err := b.repo.CheckRateLimit(updateCtx, userID,
			b.config.Bot.RateLimitMessages, time.Duration(b.config.Bot.RateLimitWindow)*time.Second)
		if err != nil {
			l.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		} else if !allowed {
			l.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage("⚠️ You are sending messages too fast. Please wait a bit.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}
		if update.Message == nil {
			return
		}
		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) sendMessage(text string) {
	msg := tgbotapi.NewMessage(b.config.Telegram.ChatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("Error sending message")
	}
}

// AnnounceStartup posts the restart banner. Tasks are memory-only, so the
// banner doubles as the "your tasks are gone" warning, with quick access to
// the help and a manual availability check.
func (b *Bot) AnnounceStartup() {
	notification := domain.Notification{
		Title:   fmt.Sprintf("%s is up", b.config.App.Name),
		Message: "Previous tasks are lost, schedule them again if needed.",
		Color:   domain.ColorStartup,
		Buttons: []domain.Button{
			{
				Label:  "Help",
				Emoji:  "❓",
				Action: &domain.Action{Callback: func(map[string]string) error { b.sendHelp(); return nil }},
			},
			{
				Label: "Check Available Slots",
				Emoji: "🔍",
				Action: &domain.Action{Callback: func(map[string]string) error {
					b.checkSlots(context.Background(), b.clubs.Names())
					return nil
				}},
			},
		},
	}
	for _, name := range b.clubs.Names() {
		cfg := b.clubCfgs[name]
		if !cfg.AutoMonitor.Enabled {
			continue
		}
		notification.Fields = append(notification.Fields, models.LogField{
			Name: b.clubs.FullName(name),
			Value: fmt.Sprintf("watching days %v at %s, every %d min",
				cfg.AutoMonitor.DaysOffset, cfg.AutoMonitor.TargetTime, cfg.AutoMonitor.RunEveryMinutes),
		})
	}
	b.notifier.Notify(notification)
}

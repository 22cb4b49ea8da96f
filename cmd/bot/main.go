package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"padelbot/internal/bot"
	"padelbot/internal/clubs"
	"padelbot/internal/config"
	"padelbot/internal/domain"
	"padelbot/internal/events"
	"padelbot/internal/logging"
	"padelbot/internal/metrics"
	"padelbot/internal/models"
	"padelbot/internal/monitor"
	"padelbot/internal/repository"
	"padelbot/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, clubCfgs, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stateRepo, closeRepo := initStateRepository(ctx, cfg, &logger)
	defer closeRepo()

	registry, err := clubs.NewRegistry(clubCfgs, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Error building club registry")
		return err
	}

	m := metrics.New()
	if cfg.Monitoring.PrometheusEnabled {
		go metrics.Serve(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug
	tgService := bot.NewBotWrapper(botAPI)

	actions := bot.NewActionRegistry()
	notifier := bot.NewNotifier(tgService, cfg.Telegram.ChatID, actions, logger)

	eventBus := events.NewEventBus()
	store := scheduler.NewTaskStore()
	sched := scheduler.New(store, registry, notifier, eventBus, m, cfg.Bot, logger)

	monitors := make(map[string]bot.MonitorTrigger)
	for _, name := range registry.Names() {
		clubCfg := clubCfgs[name]
		if !clubCfg.AutoMonitor.Enabled {
			continue
		}
		backend, _ := registry.Get(name)
		mon := monitor.New(name, backend, clubCfg, cfg.Bot, stateRepo, notifier, sched, m, logger)
		monitors[name] = mon
		go mon.Start(ctx)
	}

	telegramBot := bot.NewBot(tgService, cfg, clubCfgs, registry, store, sched,
		stateRepo, notifier, actions, monitors, m, &logger)

	// A secured slot refreshes the booking list, so the chat always shows
	// the fresh agenda links right after a win.
	eventBus.Subscribe(events.EventTaskDone, func(e *events.Event) error {
		var payload events.TaskEventPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		telegramBot.RefreshBookings(ctx, payload.Club)
		return nil
	})

	go sched.Start(ctx)

	logger.Info().Msg("Bot starting...")
	telegramBot.AnnounceStartup()
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, map[string]config.ClubConfig, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	clubsPath := os.Getenv("CLUBS_PATH")
	if clubsPath == "" {
		clubsPath = "configs/clubs.yaml"
	}
	clubsData, err := os.ReadFile(clubsPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reading %s", clubsPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var clubsConfig struct {
		Clubs map[string]config.ClubConfig `yaml:"clubs"`
	}
	if err := yaml.Unmarshal(clubsData, &clubsConfig); err != nil {
		logger.Error().Err(err).Msg("Error parsing clubs.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateClubs(clubsConfig.Clubs, cfg.Bot); err != nil {
		logger.Error().Err(err).Msg("Clubs validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, clubsConfig.Clubs, logger, closer, nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.StateRepository, func()) {
	ttl := time.Duration(models.SessionTTLSeconds) * time.Second
	fallback := repository.NewMemoryStateRepository(ttl)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("No redis configured, using in-memory state only")
		return fallback, func() {}
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}
	primary := repository.NewRedisStateRepository(redisClient, ttl)
	repo := repository.NewFailoverStateRepository(primary, fallback, logger)
	return repo, func() { _ = repository.Close(redisClient) }
}

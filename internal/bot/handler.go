package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"padelbot/internal/domain"
	"padelbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}
	userID := update.Message.From.ID

	// Mentioning the bot is a shorthand for the !task prefix.
	if mention := "@" + b.tg.GetSelf().UserName; strings.HasPrefix(text, mention) {
		text = "!task " + strings.TrimSpace(strings.TrimPrefix(text, mention))
	}

	// A pending action waiting for input consumes the next plain message.
	if !strings.HasPrefix(text, "!") && b.resumePendingAction(ctx, userID, text) {
		return
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "!task":
		if len(fields) < 2 {
			b.sendHelp()
			return
		}
		switch fields[1] {
		case "book":
			b.handleBook(fields[2:])
		case "list-bookings":
			b.handleListBookings(ctx, fields[2:])
		default:
			b.sendHelp()
		}
	case "!tasklist":
		b.handleTaskList()
	case "!rmtask":
		b.handleRemoveTask(fields[1:])
	case "!check-slots":
		b.checkSlots(ctx, b.clubNames(fields[1:]))
	case "!help":
		b.sendHelp()
	}
}

// handleBook accepts "date", "date time" and "club date time" argument
// shapes; missing parts fall back to the configured defaults.
func (b *Bot) handleBook(args []string) {
	club := b.config.Bot.DefaultClub
	date := ""
	startTime := b.config.Bot.DefaultTime

	switch len(args) {
	case 1:
		date = args[0]
	case 2:
		date, startTime = args[0], args[1]
	case 3:
		club, date, startTime = args[0], args[1], args[2]
	default:
		b.sendHelp()
		return
	}

	if _, ok := b.clubs.Get(club); !ok {
		b.notifier.Notify(domain.Notification{
			Title:   "Unknown club",
			Message: fmt.Sprintf("'%s' is not configured. Known clubs: %s", club, strings.Join(b.clubs.Names(), ", ")),
			Color:   domain.ColorError,
		})
		return
	}
	cleanDate, err := CleanDate(date, time.Now())
	if err != nil {
		b.notifier.Notify(domain.Notification{
			Title:   "Cannot read that date",
			Message: err.Error() + ". Use 25DEC, 25DEC2026 or 2026-12-25.",
			Color:   domain.ColorError,
		})
		return
	}
	cleanTime, err := CleanTime(startTime, b.config.Bot.AllowedTimes)
	if err != nil {
		b.notifier.Notify(domain.Notification{
			Title:   "Cannot book at that time",
			Message: err.Error(),
			Color:   domain.ColorError,
		})
		return
	}

	b.tasks.CreateBookingTask(club, cleanDate, cleanTime)
}

func (b *Bot) handleListBookings(ctx context.Context, args []string) {
	for _, name := range b.clubNames(args) {
		backend, ok := b.clubs.Get(name)
		if !ok {
			b.notifier.Notify(domain.Notification{
				Title: "Unknown club", Message: "'" + name + "' is not configured", Color: domain.ColorError,
			})
			continue
		}

		bookings, err := backend.ListBookings(ctx)
		if err != nil {
			b.notifier.Notify(domain.Notification{
				Title:   fmt.Sprintf("Cannot list %s bookings", backend.Fullname()),
				Message: err.Error(),
				Color:   domain.ColorError,
				Fields:  backend.Logs(),
			})
			continue
		}
		if len(bookings) == 0 {
			b.notifier.Notify(domain.Notification{
				Title: fmt.Sprintf("No upcoming booking at %s", backend.Fullname()),
				Color: domain.ColorNeutral,
			})
			continue
		}

		for _, bk := range bookings {
			b.notifier.Notify(domain.Notification{
				Title:   bk.Title,
				Message: bk.Description,
				Color:   domain.ColorInfo,
				Buttons: []domain.Button{
					{Label: "Add to Agenda", Emoji: "📆", URL: agendaLink(bk, backend.Address())},
					{
						Label: "Cancel " + bk.Date,
						Emoji: "❌",
						Action: &domain.Action{
							NeedsConfirmation: true,
							ExecuteOnlyOnce:   true,
							Callback:          b.cancelCallback(backend, bk),
						},
					},
				},
			})
		}
	}
}

// RefreshBookings re-lists a club's bookings, used right after a task
// secured a slot there.
func (b *Bot) RefreshBookings(ctx context.Context, club string) {
	b.handleListBookings(ctx, []string{club})
}

func (b *Bot) cancelCallback(backend domain.ClubBackend, bk models.RemoteBooking) func(map[string]string) error {
	return func(map[string]string) error {
		if !backend.CancelBooking(context.Background(), bk) {
			b.notifier.Notify(domain.Notification{
				Title:   "Cancellation failed",
				Message: "Could not cancel " + bk.Title,
				Color:   domain.ColorError,
				Fields:  backend.Logs(),
			})
			return fmt.Errorf("cancel booking %s", bk.ID)
		}
		b.notifier.Notify(domain.Notification{
			Title:   "Booking canceled",
			Message: bk.Title + " is canceled",
			Color:   domain.ColorSuccess,
		})
		return nil
	}
}

// handleTaskList shows active tasks with their store position, which is what
// !rmtask takes.
func (b *Bot) handleTaskList() {
	var fields []models.LogField
	for i, task := range b.store.List() {
		if task.Terminal() {
			continue
		}
		fields = append(fields, models.LogField{
			Name: fmt.Sprintf("#%d", i),
			Value: fmt.Sprintf("%s on %s at %s: %s (%d tries)",
				b.clubs.FullName(task.Club), task.Date, task.Time, task.Status, task.Tries),
		})
	}
	if len(fields) == 0 {
		b.notifier.Notify(domain.Notification{Title: "No active task", Color: domain.ColorNeutral})
		return
	}
	b.notifier.Notify(domain.Notification{
		Title:   "Active tasks",
		Message: "Remove one with !rmtask <number>",
		Color:   domain.ColorInfo,
		Fields:  fields,
	})
}

func (b *Bot) handleRemoveTask(args []string) {
	if len(args) != 1 {
		b.sendHelp()
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		b.notifier.Notify(domain.Notification{
			Title: "Cannot remove task", Message: args[0] + " is not a task number", Color: domain.ColorError,
		})
		return
	}
	task, err := b.store.Remove(index)
	if err != nil {
		b.notifier.Notify(domain.Notification{
			Title: "Cannot remove task", Message: err.Error(), Color: domain.ColorError,
		})
		return
	}
	b.notifier.Notify(domain.Notification{
		Title:   "Task removed",
		Message: fmt.Sprintf("%s on %s at %s will not be booked", b.clubs.FullName(task.Club), task.Date, task.Time),
		Color:   domain.ColorNeutral,
	})
}

func (b *Bot) checkSlots(ctx context.Context, names []string) {
	for _, name := range names {
		m, ok := b.monitors[name]
		if !ok {
			continue
		}
		m.RunOnce(ctx, true)
	}
}

func (b *Bot) clubNames(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return b.clubs.Names()
}

func (b *Bot) sendHelp() {
	b.notifier.Notify(domain.Notification{
		Title: "Commands",
		Message: strings.Join([]string{
			"!task book <date> - book the default club and time",
			"!task book <date> <time>",
			"!task book <club> <date> <time>",
			"!task list-bookings [club] - upcoming bookings",
			"!tasklist - active booking tasks",
			"!rmtask <number> - drop a task",
			"!check-slots [club] - run the availability check now",
			"",
			"Dates read as 25DEC, 25DEC2026 or 2026-12-25.",
			"Allowed times: " + strings.Join(b.config.Bot.AllowedTimes, ", "),
		}, "\n"),
		Color: domain.ColorInfo,
	})
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	userID := callback.From.ID

	// Acknowledge right away to stop the client spinner.
	if _, err := b.tg.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Error().Err(err).Msg("Error answering callback")
	}

	switch {
	case strings.HasPrefix(data, callbackRun):
		b.runAction(ctx, strings.TrimPrefix(data, callbackRun), userID, false)
	case strings.HasPrefix(data, callbackConfirm):
		b.runAction(ctx, strings.TrimPrefix(data, callbackConfirm), userID, true)
	case strings.HasPrefix(data, callbackAbort):
		b.actions.Remove(strings.TrimPrefix(data, callbackAbort))
		b.notifier.Notify(domain.Notification{Title: "Action aborted", Color: domain.ColorNeutral})
	default:
		b.logger.Warn().Str("data", data).Msg("Unknown callback data")
	}
}

// runAction drives one registered action through its confirmation and input
// collection steps, then executes it.
func (b *Bot) runAction(ctx context.Context, token string, userID int64, confirmed bool) {
	action, label, ok := b.actions.Get(token)
	if !ok {
		b.notifier.Notify(domain.Notification{
			Title:   "This button has expired",
			Message: "The action behind it is gone, probably after a restart.",
			Color:   domain.ColorWarning,
		})
		return
	}

	state, err := b.repo.GetState(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Error loading user state")
	}
	// An input session for this token implies the confirmation already
	// happened.
	if state != nil && state.ActionID == token {
		confirmed = true
	} else {
		state = nil
	}

	if action.NeedsConfirmation && !confirmed {
		msg := tgbotapi.NewMessage(b.config.Telegram.ChatID, "🟠 Confirm '"+label+"'?")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", callbackConfirm+token),
			tgbotapi.NewInlineKeyboardButtonData("❌ Abort", callbackAbort+token),
		))
		if _, err := b.tg.Send(msg); err != nil {
			b.logger.Error().Err(err).Msg("Error sending confirmation")
		}
		return
	}

	inputs := make(map[string]string)
	for _, spec := range action.Inputs {
		if spec.Value != "" {
			inputs[spec.ID] = spec.Value
		}
	}
	if state != nil {
		for k, v := range state.Inputs {
			inputs[k] = v
		}
	}
	for _, spec := range action.Inputs {
		if inputs[spec.ID] != "" {
			continue
		}
		if err := b.repo.SetState(ctx, &models.UserState{
			UserID:   userID,
			ActionID: token,
			Awaiting: spec.ID,
			Inputs:   inputs,
		}); err != nil {
			b.logger.Error().Err(err).Msg("Error saving input session")
			return
		}
		prompt := spec.Label
		if spec.Placeholder != "" {
			prompt += " (e.g. " + spec.Placeholder + ")"
		}
		b.sendMessage("✏️ " + prompt)
		return
	}

	if err := b.repo.ClearState(ctx, userID); err != nil {
		b.logger.Error().Err(err).Msg("Error clearing user state")
	}
	b.executeAction(token, label, action, inputs)
}

func (b *Bot) executeAction(token, label string, action *domain.Action, inputs map[string]string) {
	if err := action.Callback(inputs); err != nil {
		b.logger.Error().Err(err).Str("action", label).Msg("Action failed")
		b.notifier.Notify(domain.Notification{
			Title:   "'" + label + "' failed",
			Message: err.Error(),
			Color:   domain.ColorError,
		})
		return
	}
	if action.ExecuteOnlyOnce {
		b.actions.Remove(token)
	}
	if action.Announcement {
		b.notifier.Notify(domain.Notification{
			Title: "'" + label + "' executed",
			Color: domain.ColorNeutral,
		})
	}
}

// resumePendingAction feeds a plain message into the input session awaiting
// it. Returns false when there is nothing pending.
func (b *Bot) resumePendingAction(ctx context.Context, userID int64, text string) bool {
	state, err := b.repo.GetState(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Error loading user state")
		return false
	}
	if state == nil || state.Awaiting == "" {
		return false
	}

	if state.Inputs == nil {
		state.Inputs = make(map[string]string)
	}
	state.Inputs[state.Awaiting] = strings.TrimSpace(text)
	state.Awaiting = ""
	if err := b.repo.SetState(ctx, state); err != nil {
		b.logger.Error().Err(err).Msg("Error saving input session")
		return false
	}
	b.runAction(ctx, state.ActionID, userID, true)
	return true
}

package bot

import (
	"strings"

	"padelbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Callback data prefixes: run an action, confirm it, abort it.
const (
	callbackRun     = "act:"
	callbackConfirm = "cfm:"
	callbackAbort   = "abr:"
)

// Notifier renders domain notifications as chat messages. Colors become
// marker emojis, fields become lines, action buttons get their callback
// registered in the action registry.
type Notifier struct {
	tg      domain.TelegramService
	chatID  int64
	actions *ActionRegistry
	logger  zerolog.Logger
}

func NewNotifier(tg domain.TelegramService, chatID int64, actions *ActionRegistry, logger zerolog.Logger) *Notifier {
	return &Notifier{tg: tg, chatID: chatID, actions: actions, logger: logger}
}

func (n *Notifier) Notify(notification domain.Notification) {
	msg := tgbotapi.NewMessage(n.chatID, renderNotification(notification))
	if keyboard, ok := n.keyboard(notification.Buttons); ok {
		msg.ReplyMarkup = keyboard
	}
	if _, err := n.tg.Send(msg); err != nil {
		n.logger.Error().Err(err).Str("title", notification.Title).Msg("Error sending notification")
	}
}

func (n *Notifier) keyboard(buttons []domain.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, b := range buttons {
		label := b.Label
		if b.Emoji != "" {
			label = b.Emoji + " " + b.Label
		}
		switch {
		case b.URL != "":
			row = append(row, tgbotapi.NewInlineKeyboardButtonURL(label, b.URL))
		case b.Action != nil:
			token := n.actions.Register(b.Label, b.Action)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackRun+token))
		default:
			continue
		}
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func renderNotification(n domain.Notification) string {
	var sb strings.Builder
	sb.WriteString(colorMarker(n.Color))
	sb.WriteString(" ")
	sb.WriteString(n.Title)
	if n.Message != "" {
		sb.WriteString("\n\n")
		sb.WriteString(n.Message)
	}
	if len(n.Fields) > 0 {
		sb.WriteString("\n")
		for _, f := range n.Fields {
			sb.WriteString("\n")
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Value)
		}
	}
	return sb.String()
}

func colorMarker(color string) string {
	switch color {
	case domain.ColorError:
		return "🔴"
	case domain.ColorWarning:
		return "🟠"
	case domain.ColorSuccess:
		return "🟢"
	case domain.ColorNeutral:
		return "⚪️"
	case domain.ColorStartup:
		return "🟣"
	default:
		return "🔵"
	}
}

package bot

import (
	"testing"

	"padelbot/internal/domain"
	"padelbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTG struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	self      tgbotapi.User
}

func (f *fakeTG) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTG) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTG) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return nil }
func (f *fakeTG) GetSelf() tgbotapi.User                                       { return f.self }
func (f *fakeTG) StopReceivingUpdates()                                        {}

func (f *fakeTG) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	mc, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return mc
}

func TestNotifierRendersTitleMessageAndFields(t *testing.T) {
	tg := &fakeTG{}
	n := NewNotifier(tg, 99, NewActionRegistry(), zerolog.Nop())

	n.Notify(domain.Notification{
		Title:   "Attempt 2/5",
		Message: "Still trying",
		Color:   domain.ColorError,
		Fields: []models.LogField{
			{Name: "12:00:00 - ERROR", Value: "boom"},
		},
	})

	mc := tg.lastMessage(t)
	assert.Equal(t, int64(99), mc.ChatID)
	assert.Contains(t, mc.Text, "🔴 Attempt 2/5")
	assert.Contains(t, mc.Text, "Still trying")
	assert.Contains(t, mc.Text, "12:00:00 - ERROR: boom")
}

func TestNotifierBuildsKeyboard(t *testing.T) {
	tg := &fakeTG{}
	actions := NewActionRegistry()
	n := NewNotifier(tg, 99, actions, zerolog.Nop())

	var pressed bool
	n.Notify(domain.Notification{
		Title: "Available slots",
		Color: domain.ColorInfo,
		Buttons: []domain.Button{
			{Label: "Add to Agenda", Emoji: "📆", URL: "https://calendar.google.com/x"},
			{Label: "Book", Action: &domain.Action{Callback: func(map[string]string) error {
				pressed = true
				return nil
			}}},
		},
	})

	mc := tg.lastMessage(t)
	keyboard, ok := mc.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	row := keyboard.InlineKeyboard[0]
	require.Len(t, row, 2)

	assert.Equal(t, "📆 Add to Agenda", row[0].Text)
	require.NotNil(t, row[0].URL)

	require.NotNil(t, row[1].CallbackData)
	data := *row[1].CallbackData
	require.True(t, len(data) > len(callbackRun))

	action, label, ok := actions.Get(data[len(callbackRun):])
	require.True(t, ok)
	assert.Equal(t, "Book", label)
	require.NoError(t, action.Callback(nil))
	assert.True(t, pressed)
}

func TestNotifierSkipsEmptyKeyboard(t *testing.T) {
	tg := &fakeTG{}
	n := NewNotifier(tg, 99, NewActionRegistry(), zerolog.Nop())

	n.Notify(domain.Notification{Title: "plain", Color: domain.ColorNeutral})

	mc := tg.lastMessage(t)
	assert.Nil(t, mc.ReplyMarkup)
	assert.Contains(t, mc.Text, "⚪️ plain")
}

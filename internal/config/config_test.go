package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
telegram:
  bot_token: "test_token"
  chat_id: 42
bot:
  allowed_times: ["18:00", "18:30", "20:00"]
  max_tries: 7
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "test_token" {
		t.Errorf("expected bot_token test_token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Bot.MaxTries != 7 {
		t.Errorf("expected max_tries 7, got %d", cfg.Bot.MaxTries)
	}
	// Defaults kick in for everything unset.
	if cfg.Bot.TickSeconds != 3 {
		t.Errorf("expected default tick_seconds 3, got %d", cfg.Bot.TickSeconds)
	}
	if cfg.Bot.DefaultClub != "allin" {
		t.Errorf("expected default club allin, got %s", cfg.Bot.DefaultClub)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token", ChatID: 1},
				Bot:      BotConfig{AllowedTimes: []string{"18:00", "18:30"}},
			},
			wantErr: false,
		},
		{
			name: "missing token",
			cfg: Config{
				Telegram: TelegramConfig{ChatID: 1},
				Bot:      BotConfig{AllowedTimes: []string{"18:00", "18:30"}},
			},
			wantErr: true,
		},
		{
			name: "single allowed time has no derivable end time",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token", ChatID: 1},
				Bot:      BotConfig{AllowedTimes: []string{"18:00"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateClubs(t *testing.T) {
	bot := BotConfig{AllowedTimes: []string{"18:00", "18:30", "20:00"}}

	clubs := map[string]ClubConfig{
		"allin": {
			APIType: "allin",
			APIURL:  "https://api.example.com",
			User:    "u", Password: "p",
			AutoMonitor: AutoMonitorConfig{Enabled: true, TargetTime: "18:30"},
		},
		"ballejaune": {
			APIType:     "ballejaune",
			APIURL:      "https://club.example.com",
			Credentials: []Credential{{Name: "main", Login: "l", Password: "p"}},
			Schedules:   []Schedule{{Name: "indoor", Value: "12"}},
		},
	}
	if err := ValidateClubs(clubs, bot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := map[string]ClubConfig{
		"mystery": {APIType: "teleport", APIURL: "https://x"},
	}
	if err := ValidateClubs(bad, bot); err == nil {
		t.Error("expected error for unknown api type")
	}

	badTime := map[string]ClubConfig{
		"allin": {
			APIType: "allin", APIURL: "https://x", User: "u", Password: "p",
			AutoMonitor: AutoMonitorConfig{Enabled: true, TargetTime: "03:00"},
		},
	}
	if err := ValidateClubs(badTime, bot); err == nil {
		t.Error("expected error for target time outside allowed times")
	}
}

func TestNextTime(t *testing.T) {
	bot := BotConfig{AllowedTimes: []string{"18:00", "18:30", "20:00"}}

	next, err := bot.NextTime("18:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != "18:30" {
		t.Errorf("expected 18:30, got %s", next)
	}

	if _, err := bot.NextTime("20:00"); err == nil {
		t.Error("expected error for the last allowed time")
	}
	if _, err := bot.NextTime("03:00"); err == nil {
		t.Error("expected error for a time outside the sequence")
	}
}

package config

import (
	"errors"
	"fmt"
	"os"

	"padelbot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BotConfig struct {
	// AllowedTimes is the ordered sequence of bookable start times; the
	// value following a task's start time is used as its end time.
	AllowedTimes      []string `yaml:"allowed_times"`
	DefaultClub       string   `yaml:"default_club"`
	DefaultTime       string   `yaml:"default_time"`
	MaxTries          int      `yaml:"max_tries"`
	TickSeconds       int      `yaml:"tick_seconds"`
	RateLimitMessages int      `yaml:"rate_limit_messages"`
	RateLimitWindow   int      `yaml:"rate_limit_window"`
}

// NextTime returns the allowed time following start, used as a task's end
// time. The last allowed time has no follower and cannot start a task.
func (b BotConfig) NextTime(start string) (string, error) {
	for i, t := range b.AllowedTimes {
		if t != start {
			continue
		}
		if i == len(b.AllowedTimes)-1 {
			return "", fmt.Errorf("%s is the last allowed time, nothing can start there", start)
		}
		return b.AllowedTimes[i+1], nil
	}
	return "", fmt.Errorf("%s is not an allowed time", start)
}

// ClubConfig describes one reservation site integration. Loaded from the
// separate clubs file, one entry per club name.
type ClubConfig struct {
	APIType           string `yaml:"api_type"` // "ballejaune" | "allin"
	Fullname          string `yaml:"fullname"`
	Address           string `yaml:"address"`
	APIURL            string `yaml:"api_url"`
	ClubID            string `yaml:"club_id"`
	DaysBeforeBooking int    `yaml:"days_before_booking"`

	// ballejaune
	Credentials []Credential `yaml:"credentials"`
	Schedules   []Schedule   `yaml:"schedules"`

	// allin
	AccountName     string   `yaml:"account_name"`
	AccountID       string   `yaml:"account_id"`
	User            string   `yaml:"user"`
	Password        string   `yaml:"password"`
	ClubWhiteLabel  string   `yaml:"club_white_label"`
	ActivityID      string   `yaml:"activity_id"`
	PlaygroundOrder []string `yaml:"playground_order"`

	AutoMonitor AutoMonitorConfig `yaml:"auto_monitor"`
}

type Credential struct {
	Name     string `yaml:"name"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

type Schedule struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type AutoMonitorConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RunEveryMinutes int    `yaml:"run_every_minutes"`
	DaysOffset      []int  `yaml:"days_offset"`
	TargetTime      string `yaml:"target_time"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; only used for ${VAR} expansion in the YAML.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram chat id is required")
	}
	if len(c.Bot.AllowedTimes) < 2 {
		return errors.New("at least two allowed times are required to derive an end time")
	}
	return nil
}

// ValidateClubs checks the clubs file entries against the bot config.
func ValidateClubs(clubs map[string]ClubConfig, bot BotConfig) error {
	if len(clubs) == 0 {
		return errors.New("at least one club is required")
	}
	for name, club := range clubs {
		switch club.APIType {
		case "ballejaune":
			if len(club.Credentials) == 0 {
				return fmt.Errorf("club '%s': ballejaune requires credentials", name)
			}
			if len(club.Schedules) == 0 {
				return fmt.Errorf("club '%s': ballejaune requires schedules", name)
			}
		case "allin":
			if club.User == "" || club.Password == "" {
				return fmt.Errorf("club '%s': allin requires user and password", name)
			}
		default:
			return fmt.Errorf("club '%s': unknown api type '%s'", name, club.APIType)
		}
		if club.APIURL == "" {
			return fmt.Errorf("club '%s': api url is required", name)
		}
		if club.AutoMonitor.Enabled && club.AutoMonitor.TargetTime != "" {
			if !contains(bot.AllowedTimes, club.AutoMonitor.TargetTime) {
				return fmt.Errorf("club '%s': auto monitor target time %s is not an allowed time", name, club.AutoMonitor.TargetTime)
			}
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if len(c.Bot.AllowedTimes) == 0 {
		c.Bot.AllowedTimes = []string{"12:00", "13:30", "15:00", "16:30", "18:00", "18:30", "20:00", "21:30"}
	}
	if c.Bot.DefaultClub == "" {
		c.Bot.DefaultClub = "allin"
	}
	if c.Bot.DefaultTime == "" {
		c.Bot.DefaultTime = "18:30"
	}
	if c.Bot.MaxTries == 0 {
		c.Bot.MaxTries = models.DefaultMaxTries
	}
	if c.Bot.TickSeconds == 0 {
		c.Bot.TickSeconds = models.DefaultTickSeconds
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string
	OwnerID      string

	// Leaderboard
	LeaderboardChannelID string
	LeaderboardMessageID string
	DisplayLength        int
	ExpBarSize           int
	EditDelaySeconds     int

	// Messages
	Prefix          string
	IgnoredChannels []string
	ReactionEmoji   string

	// Experience
	CooldownSeconds int
	ExpMin          int
	ExpMax          int

	// Database
	DatabasePath string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:         os.Getenv("DISCORD_BOT_TOKEN"),
		OwnerID:              os.Getenv("OWNER_ID"),
		LeaderboardChannelID: os.Getenv("LEADERBOARD_CHANNEL_ID"),
		LeaderboardMessageID: os.Getenv("LEADERBOARD_MESSAGE_ID"),
		Prefix:               getEnvOrDefault("COMMAND_PREFIX", "."),
		IgnoredChannels:      splitList(os.Getenv("IGNORED_CHANNELS")),
		ReactionEmoji:        getEnvOrDefault("REACTION_EMOJI", "\U0001F44D"),
		DatabasePath:         getEnvOrDefault("DATABASE_PATH", "./data/levelbot.db"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	ints := []struct {
		key      string
		fallback int
		min      int
		dst      *int
	}{
		{"DISPLAY_LENGTH", 10, 1, &cfg.DisplayLength},
		{"EXP_BAR_SIZE", 20, 1, &cfg.ExpBarSize},
		{"EDIT_DELAY_SECONDS", 5, 1, &cfg.EditDelaySeconds},
		{"COOLDOWN_SECONDS", 10, 0, &cfg.CooldownSeconds},
		{"EXP_MIN", 10, 0, &cfg.ExpMin},
		{"EXP_MAX", 25, 0, &cfg.ExpMax},
	}
	for _, v := range ints {
		n, err := getIntOrDefault(v.key, v.fallback)
		if err != nil {
			return nil, err
		}
		if n < v.min {
			return nil, fmt.Errorf("%s must be at least %d, got %d", v.key, v.min, n)
		}
		*v.dst = n
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.LeaderboardChannelID == "" {
		return nil, fmt.Errorf("LEADERBOARD_CHANNEL_ID is required")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return nil, fmt.Errorf("COMMAND_PREFIX must not be blank")
	}
	if cfg.ExpMax < cfg.ExpMin {
		return nil, fmt.Errorf("EXP_MAX (%d) must not be less than EXP_MIN (%d)", cfg.ExpMax, cfg.ExpMin)
	}

	return cfg, nil
}

// Cooldown returns the per-user award cooldown
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// EditDelay returns the leaderboard sync interval
func (c *Config) EditDelay() time.Duration {
	return time.Duration(c.EditDelaySeconds) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

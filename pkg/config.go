package pkg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"patchnotes-bot/pkg/merges"
	"patchnotes-bot/pkg/patchnotes"
	"patchnotes-bot/pkg/store"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

const MinPollInterval = 30 * time.Second

type Config struct {
	Token         string
	ApplicationID snowflake.ID
	GuildID       snowflake.ID
	ChannelID     snowflake.ID

	GitHubToken  string
	GitHubAPIURL string
	Repository   merges.Repository
	BaseBranch   string
	HeadBranch   string

	PollInterval   time.Duration
	RequestTimeout time.Duration

	StatePath   string
	DatabaseURL string

	SentryDSN   string
	Environment string
	LogLevel    slog.Level

	Embed patchnotes.EmbedStyle
}

var dotenvOnce sync.Once

// LoadDotenv loads the .env file of the working directory into the environment, once per process.
// Variables that are already set win and a missing file is fine.
func LoadDotenv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// LoadConfig reads the configuration from the environment, after loading a .env file if there is one.
func LoadConfig() (*Config, error) {
	LoadDotenv()

	var errs []error
	cfg := &Config{
		Token:        os.Getenv("DISCORD_TOKEN"),
		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),
		Repository: merges.Repository{
			Owner: os.Getenv("GITHUB_OWNER"),
			Name:  os.Getenv("GITHUB_REPO"),
		},
		BaseBranch:  getEnvOrDefault("GITHUB_BASE_BRANCH", merges.DefaultBaseBranch),
		HeadBranch:  getEnvOrDefault("GITHUB_HEAD_BRANCH", merges.DefaultHeadBranch),
		StatePath:   getEnvOrDefault("STATE_PATH", store.DefaultPath),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getEnvOrDefault("BOT_ENVIRONMENT", "DEV"),
		Embed: patchnotes.EmbedStyle{
			Title:        getEnvOrDefault("PATCHNOTES_TITLE", patchnotes.DefaultTitle),
			Footer:       getEnvOrDefault("PATCHNOTES_FOOTER", patchnotes.DefaultFooter),
			ThumbnailURL: getEnvOrDefault("PATCHNOTES_THUMBNAIL_URL", patchnotes.DefaultThumbnailURL),
			Color:        patchnotes.DefaultColor,
		},
	}

	if cfg.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if cfg.Repository.Owner == "" {
		errs = append(errs, errors.New("GITHUB_OWNER is not set"))
	}
	if cfg.Repository.Name == "" {
		errs = append(errs, errors.New("GITHUB_REPO is not set"))
	}

	var err error
	if cfg.ChannelID, err = parseSnowflake("PATCHNOTES_CHANNEL_ID", true); err != nil {
		errs = append(errs, err)
	}
	if cfg.ApplicationID, err = parseSnowflake("DISCORD_APPLICATION_ID", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.GuildID, err = parseSnowflake("DISCORD_GUILD_ID", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.PollInterval, err = parseDuration("POLL_INTERVAL", patchnotes.DefaultInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", merges.DefaultTimeout); err != nil {
		errs = append(errs, err)
	}
	if color := os.Getenv("PATCHNOTES_COLOR"); color != "" {
		if cfg.Embed.Color, err = parseColor(color); err != nil {
			errs = append(errs, fmt.Errorf("PATCHNOTES_COLOR: %w", err))
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "PROD")
}

func getEnvOrDefault(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseSnowflake(key string, required bool) (snowflake.ID, error) {
	value := os.Getenv(key)
	if value == "" {
		if required {
			return 0, fmt.Errorf("%s is not set", key)
		}
		return 0, nil
	}
	id, err := snowflake.Parse(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return id, nil
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return defaultValue, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func parseColor(value string) (int, error) {
	value = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(value), "#"), "0x")
	color, err := strconv.ParseInt(value, 16, 32)
	if err != nil {
		return 0, err
	}
	if color < 0 || color > 0xFFFFFF {
		return 0, fmt.Errorf("%#x is not a valid rgb color", color)
	}
	return int(color), nil
}

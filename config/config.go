package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken string `env:"DISCORD_BOT_TOKEN"`
	ClientID     string `env:"DISCORD_CLIENT_ID"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Silent      bool   `env:"SILENT"`
	Environment string `env:"NODE_ENV" envDefault:"development"`

	AutoLeaveTimeout int `env:"AUTO_LEAVE_TIMEOUT" envDefault:"300"`

	YouTubeAPIKey   string        `env:"YOUTUBE_API_KEY"`
	YTDLPBinary     string        `env:"YTDLP_BINARY" envDefault:"yt-dlp"`
	FFmpegBinary    string        `env:"FFMPEG_BINARY" envDefault:"ffmpeg"`
	SearchCacheSize int           `env:"SEARCH_CACHE_SIZE" envDefault:"256"`
	SearchCacheTTL  time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"10m"`

	DBHost     string `env:"DB_HOST"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_BOT_TOKEN is required")
	}

	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "info", "http", "verbose", "debug", "silly":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of error, warn, info, http, verbose, debug, silly (got %q)", c.LogLevel)
	}

	if c.AutoLeaveTimeout < 0 {
		return errors.New("AUTO_LEAVE_TIMEOUT must not be negative")
	}

	if c.SearchCacheSize < 1 {
		return errors.New("SEARCH_CACHE_SIZE must be at least 1")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// CanSyncCommands reports whether slash commands can be pushed on startup.
func (c *Config) CanSyncCommands() bool {
	return c.ClientID != ""
}

func (c *Config) AutoLeave() time.Duration {
	return time.Duration(c.AutoLeaveTimeout) * time.Second
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Enabled  bool
}

func (c *Config) GetDBConfig() *DBConfig {
	return &DBConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
		Enabled:  c.DBHost != "" && c.DBName != "",
	}
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

func (c *Config) GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		Enabled:  c.RedisHost != "",
	}
}

// RegisterConfig is read by the single-guild registration command.
type RegisterConfig struct {
	DiscordToken string `env:"DISCORD_BOT_TOKEN"`
	ClientID     string `env:"CLIENT_ID"`
	GuildID      string `env:"GUILD_ID"`
}

func LoadRegister() (*RegisterConfig, error) {
	_ = godotenv.Load()

	cfg := &RegisterConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DiscordToken == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is required")
	}
	if cfg.ClientID == "" || cfg.GuildID == "" {
		return nil, errors.New("CLIENT_ID and GUILD_ID are required")
	}

	return cfg, nil
}

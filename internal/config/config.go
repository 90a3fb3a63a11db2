package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"nft-sales-alerts/internal/logging"
	"nft-sales-alerts/internal/opensea"
)

// Config materialises application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logging       logging.Config      `mapstructure:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	OpenSea       OpenSeaConfig       `mapstructure:"opensea"`
	Discord       DiscordConfig       `mapstructure:"discord"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Watermark     WatermarkConfig     `mapstructure:"watermark"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates optional PostgreSQL connectivity for the
// notified-event history and the database-backed watermark.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs polling cadence and failure handling.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Lookback     time.Duration `mapstructure:"lookback"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	MaxFailures  int           `mapstructure:"max_failures"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
}

// OpenSeaConfig covers the events endpoint.
type OpenSeaConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Collection      string        `mapstructure:"collection"`
	ContractAddress string        `mapstructure:"contract_address"`
	EventKind       string        `mapstructure:"event_kind"`
	PageLimit       int           `mapstructure:"page_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// DiscordConfig captures destination channel connectivity.
type DiscordConfig struct {
	// WebhookURLs holds one or more webhook URLs separated by semicolons.
	WebhookURLs    string        `mapstructure:"webhook_urls"`
	Username       string        `mapstructure:"username"`
	AvatarURL      string        `mapstructure:"avatar_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WebhookList splits the configured webhook URLs.
func (c DiscordConfig) WebhookList() []string {
	parts := strings.Split(c.WebhookURLs, ";")
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}

// NotificationsConfig defines display overrides and filtering.
type NotificationsConfig struct {
	BrandName    string   `mapstructure:"brand_name"`
	BrandIconURL string   `mapstructure:"brand_icon_url"`
	BrandLink    string   `mapstructure:"brand_link"`
	ThumbnailURL string   `mapstructure:"thumbnail_url"`
	Color        int      `mapstructure:"color"`
	AllowedNames []string `mapstructure:"allowed_names"`
}

// WatermarkConfig locates the file-backed watermark used when no database is
// configured.
type WatermarkConfig struct {
	Path string `mapstructure:"path"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEAWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "seawatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.lookback", "1h")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.max_failures", 10)
	v.SetDefault("scheduler.max_backoff", "15m")

	v.SetDefault("opensea.base_url", "https://api.opensea.io/api/v1")
	v.SetDefault("opensea.event_kind", "sale")
	v.SetDefault("opensea.page_limit", 100)
	v.SetDefault("opensea.request_timeout", "10s")
	v.SetDefault("opensea.user_agent", "seawatcher/1.0")

	v.SetDefault("discord.request_timeout", "10s")

	v.SetDefault("watermark.path", "seawatcher-state.json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Lookback <= 0 {
		return fmt.Errorf("scheduler.lookback must be greater than zero")
	}
	if c.Scheduler.MaxFailures < 0 {
		return fmt.Errorf("scheduler.max_failures cannot be negative")
	}
	if c.OpenSea.PageLimit <= 0 || c.OpenSea.PageLimit > 300 {
		return fmt.Errorf("opensea.page_limit must be between 1 and 300")
	}
	if kind := opensea.EventKind(c.OpenSea.EventKind); !kind.Valid() {
		return fmt.Errorf("opensea.event_kind must be one of sale, listing, bid")
	}
	if addr := c.OpenSea.ContractAddress; addr != "" && !common.IsHexAddress(addr) {
		return fmt.Errorf("opensea.contract_address is not a valid hex address")
	}
	if c.Watermark.Path == "" && c.Database.DSN == "" {
		return fmt.Errorf("watermark.path must be set when no database is configured")
	}
	return nil
}

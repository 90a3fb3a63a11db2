package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"nft-sales-alerts/internal/alerting"
	"nft-sales-alerts/internal/config"
	"nft-sales-alerts/internal/opensea"
	"nft-sales-alerts/internal/scheduler"
	"nft-sales-alerts/internal/service"
	"nft-sales-alerts/internal/storage"
	"nft-sales-alerts/internal/watermark"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() *opensea.Client {
	cfg := a.Config.OpenSea
	if cfg.APIKey == "" {
		a.Logger.Warn().Msg("opensea.api_key not configured; unauthenticated requests may be rate limited")
	}
	return opensea.NewClient(opensea.Options{
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Collection:      cfg.Collection,
		ContractAddress: cfg.ContractAddress,
		Kind:            opensea.EventKind(cfg.EventKind),
		PageLimit:       cfg.PageLimit,
		Timeout:         cfg.RequestTimeout,
		UserAgent:       cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newFormatter() *alerting.Formatter {
	cfg := a.Config.Notifications
	return alerting.NewFormatter(alerting.FormatterOptions{
		BrandName:    cfg.BrandName,
		BrandIconURL: cfg.BrandIconURL,
		BrandLink:    cfg.BrandLink,
		ThumbnailURL: cfg.ThumbnailURL,
		Color:        cfg.Color,
		Username:     a.Config.Discord.Username,
		AvatarURL:    a.Config.Discord.AvatarURL,
	})
}

// newChannels constructs and validates every configured destination channel.
// A channel that fails validation is fatal: no cycle runs against a channel
// that cannot authenticate.
func (a *App) newChannels(ctx context.Context) ([]alerting.Channel, error) {
	urls := a.Config.Discord.WebhookList()
	if len(urls) == 0 {
		return nil, errors.New("discord.webhook_urls must contain at least one webhook")
	}

	channels := make([]alerting.Channel, 0, len(urls))
	for _, url := range urls {
		channel := alerting.NewWebhookChannel(url, a.Config.Discord.RequestTimeout, a.Logger)
		if err := channel.Validate(ctx); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}

	a.Logger.Info().Int("channels", len(channels)).Msg("destination channels validated")
	return channels, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newWatermarkStore prefers the database row when one is configured and falls
// back to the local state file.
func (a *App) newWatermarkStore(store *storage.Store) watermark.Store {
	if store != nil {
		return storage.NewWatermarkRepository(store, a.Config.OpenSea.Collection)
	}
	return watermark.NewFileStore(a.Config.Watermark.Path)
}

func (a *App) buildService(ctx context.Context) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if closeStore != nil {
		cleanup = closeStore
	}
	if store == nil {
		a.Logger.Info().Msg("database.dsn not configured; event history disabled, watermark kept on disk")
	}

	channels, err := a.newChannels(ctx)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var history storage.EventHistoryStore
	if store != nil {
		history = store
	}

	svc := service.New(
		service.Options{
			Collection:   a.Config.OpenSea.Collection,
			Lookback:     a.Config.Scheduler.Lookback,
			PageLimit:    a.Config.OpenSea.PageLimit,
			AllowedNames: a.Config.Notifications.AllowedNames,
		},
		a.newFetcher(),
		a.newFormatter(),
		alerting.NewFanout(a.Logger),
		channels,
		a.newWatermarkStore(store),
		history,
		a.Logger,
	)

	return svc, cleanup, nil
}

// Run executes the long-running polling service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.buildService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		MaxFailures:  a.Config.Scheduler.MaxFailures,
		MaxBackoff:   a.Config.Scheduler.MaxBackoff,
	}, a.Logger)

	a.Logger.Info().
		Str("collection", a.Config.OpenSea.Collection).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting notification service")

	err = sched.Run(ctx, svc.RunCycle)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("notification service stopped")
	return nil
}

// Once executes a single cycle and returns its outcome.
func (a *App) Once(ctx context.Context) error {
	svc, cleanup, err := a.buildService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return svc.RunCycle(ctx)
}

// ExportOptions hold parameters for exporting notified-event history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions configure the synthetic notification.
type SimulateOptions struct {
	Name      string
	AmountEth float64
}

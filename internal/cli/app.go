package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/taleweaver/internal/config"
	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/kv"
	"github.com/roach88/taleweaver/internal/kv/rediskv"
	"github.com/roach88/taleweaver/internal/kv/sqlitekv"
	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/store"
)

// App is the composition root: one store, one API client, one media
// registry, and the reconciler over them.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Stories    *store.Stories
	Remote     *remote.Client
	Registry   *media.Registry
	Reconciler *feed.Reconciler
}

// NewApp wires the components cfg describes. The store is opened lazily
// on first use.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	sub, err := openSubstrate(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	stories := store.New(sub,
		store.WithName(cfg.Store.Name),
		store.WithRequirePhoto(cfg.Store.RequirePhoto),
		store.WithLogger(logger),
	)

	client := remote.NewClient(
		remote.WithBaseURL(cfg.Remote.BaseURL),
		remote.WithToken(cfg.Remote.Token),
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithRetries(cfg.Remote.Retries, cfg.Remote.RetryBackoff),
		remote.WithLogger(logger),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Stories:  stories,
		Remote:   client,
		Registry: media.NewRegistry(),
		Reconciler: feed.NewReconciler(client, stories,
			feed.WithQuery(cfg.Query()),
			feed.WithLogger(logger),
		),
	}, nil
}

// Close closes the store.
func (a *App) Close() error {
	return a.Stories.Close()
}

func openSubstrate(ctx context.Context, sc config.StoreConfig) (kv.Substrate, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return kv.NewMemory(), nil
	case config.DriverRedis:
		sub, err := rediskv.Dial(ctx, sc.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return sub, nil
	default:
		sub, err := sqlitekv.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return sub, nil
	}
}

// start loads config and builds the App and output formatter for cmd.
func (o *RootOptions) start(cmd *cobra.Command) (*App, *OutputFormatter, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	app, err := NewApp(cmd.Context(), cfg, o.newLogger(cmd.ErrOrStderr(), cfg))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return app, o.formatter(cmd, cfg), nil
}

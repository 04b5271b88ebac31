package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patchnotes-bot/pkg"
	"patchnotes-bot/pkg/commands"
	"patchnotes-bot/pkg/db"
	"patchnotes-bot/pkg/handlers"
	"patchnotes-bot/pkg/merges"
	"patchnotes-bot/pkg/patchnotes"
	"patchnotes-bot/pkg/store"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "Run the bot and the patch notes poller",
	Action: run,
}

func run(c *cli.Context) error {
	cfg, err := pkg.LoadConfig()
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration:\n%v", err), 1)
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:           cfg.SentryDSN,
		EnableTracing: false,
		Environment:   cfg.Environment,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if cfg.IsProduction() { // only report events in prod
				return event
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slogmulti.Fanout(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}),
		sentryslog.Option{EventLevel: []slog.Level{slog.LevelWarn, slog.LevelError}}.NewSentryHandler(ctx)))
	slog.SetDefault(logger)

	slog.Info("starting the bot...", slog.String("disgo.version", disgo.Version), slog.String("repository", cfg.Repository.String()))

	githubClient, err := merges.NewGitHubClient(merges.NewHTTPClient(cfg.RequestTimeout), cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	source := merges.NewSource(githubClient, cfg.Repository, cfg.BaseBranch, cfg.HeadBranch)

	cursor, closeCursor, err := openCursorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCursor()

	b := &pkg.Bot{Source: source}
	h := handlers.NewHandler(b, cfg)

	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds),
			gateway.WithPresenceOpts(gateway.WithWatchingActivity(cfg.Repository.String()))),
		bot.WithEventListeners(h))
	if err != nil {
		return err
	}
	defer client.Close(context.TODO())

	announcer := patchnotes.NewChannelAnnouncer(client.Rest, cfg.ChannelID, cfg.Embed)
	b.Poller = patchnotes.NewPoller(source, announcer, cursor, patchnotes.PollerConfig{
		Interval: cfg.PollInterval,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger,
	})

	if cfg.GuildID != 0 {
		if _, err := commands.Register(client.Rest, client.ApplicationID, cfg.GuildID, rest.WithCtx(ctx)); err != nil {
			slog.Error("patchnotes: error while registering commands", slog.Any("guild.id", cfg.GuildID), tint.Err(err))
		}
	}

	if err := client.OpenGateway(ctx); err != nil {
		return err
	}

	for _, d := range source.Diagnose(ctx) {
		if d.OK {
			slog.Info("github: "+d.Message, slog.String("repository", cfg.Repository.String()))
		} else {
			slog.Warn("github: "+d.Message, slog.String("repository", cfg.Repository.String()))
		}
	}

	slog.Info("patchnotes bot is now running.", slog.Any("channel.id", cfg.ChannelID), slog.Duration("interval", cfg.PollInterval))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return b.Poller.Run(ctx)
	})
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutting down...")
	return nil
}

// openCursorStore picks postgres when DATABASE_URL is set and the json file otherwise.
func openCursorStore(ctx context.Context, cfg *pkg.Config) (patchnotes.CursorStore, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Info("patchnotes: using file cursor", slog.String("path", cfg.StatePath))
		return store.NewFile(cfg.StatePath), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	cursor := db.NewDB(pool, cfg.Repository.String())
	if err := cursor.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("error while migrating the database: %w", err)
	}
	slog.Info("patchnotes: using database cursor")
	return cursor, pool.Close, nil
}

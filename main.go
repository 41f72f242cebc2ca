package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"github.com/BatmanBruc/jondor-ad-bot/internal/config"
	"github.com/BatmanBruc/jondor-ad-bot/internal/handlers"
	"github.com/BatmanBruc/jondor-ad-bot/internal/logging"
	"github.com/BatmanBruc/jondor-ad-bot/internal/middleware"
	"github.com/BatmanBruc/jondor-ad-bot/internal/publisher"
	"github.com/BatmanBruc/jondor-ad-bot/store"
	"github.com/BatmanBruc/jondor-ad-bot/types"
)

func main() {
	if err := config.LoadEnvFiles("config.env"); err != nil {
		slog.Error("load config.env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		pgStore  *store.PostgresStore
		sessions types.StateStore
		rdb      *store.RedisClient
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := store.NewPostgresStore(gctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		pgStore = s
		return nil
	})
	g.Go(func() error {
		if cfg.Session.Backend != config.StateBackendRedis {
			sessions = store.NewMemorySessionStore(cfg.Session.Limit, cfg.Session.TTL)
			return nil
		}
		c, err := store.NewRedisClient(gctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			return err
		}
		rdb = c
		sessions = store.NewRedisSessionStore(c, cfg.Session.TTL)
		return nil
	})
	err := g.Wait()
	if pgStore != nil {
		defer pgStore.Close()
	}
	if rdb != nil {
		defer rdb.Close()
	}
	if err != nil {
		return err
	}
	logger.Info("storage ready", "state_backend", cfg.Session.Backend)

	httpClient := &http.Client{
		Timeout: cfg.PollTimeout + time.Minute,
	}
	b, err := bot.New(
		cfg.BotToken,
		bot.WithHTTPClient(cfg.PollTimeout, httpClient),
	)
	if err != nil {
		return err
	}

	h := handlers.NewHandlers(b, pgStore, sessions, publisher.NewPublisher(b, cfg.GroupID), handlers.Options{
		SuperadminID: cfg.SuperadminID,
		AdminContact: cfg.AdminContact,
	})
	mw := middleware.NewMiddlewares(logger)

	handlerChain := mw.AnalyzeUpdateMiddleware(
		mw.RequestMiddleware(
			mw.SerializeSessionMiddleware(
				h.MainHandler,
			),
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	logger.Info("bot started", "group_id", cfg.GroupID)
	b.Start(ctx)
	return nil
}

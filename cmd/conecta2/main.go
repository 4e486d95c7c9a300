package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/conecta2/conecta2/cmd/conecta2/cli"
	"github.com/conecta2/conecta2/internal/app"
	"github.com/conecta2/conecta2/internal/observability"
	"github.com/conecta2/conecta2/internal/platform/cache"
	"github.com/conecta2/conecta2/internal/users"
	"github.com/conecta2/conecta2/internal/view"
	"github.com/conecta2/conecta2/jobs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("conecta2 stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		slog.Default().Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		_ = jobsCLI.Close()
	}()
	return jobsCLI.JobsCommand(ctx, cli.JobsOptions{Args: args})
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	source, err := users.NewHTTPSource(cfg.UsersAPIBaseURL, cfg.UsersAPITimeout)
	if err != nil {
		return err
	}
	controller := users.NewController(source, users.ControllerConfig{
		Logger:  logger,
		Metrics: metrics.Jobs(),
	})
	defer controller.Close()

	templates, err := view.NewEngine()
	if err != nil {
		return err
	}

	var jobHandler *jobs.Handler
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, change notices and queue health disabled", slog.Any("error", err))
		jobHandler = jobs.NewHandler(nil, logger)
	} else {
		defer closeRedis(redisClient, logger)
		broadcaster := users.NewBroadcaster(redisClient, logger)
		if err := broadcaster.Listen(ctx, func(count int) {
			logger.Debug("users changed notice", slog.Int("count", count))
			controller.Refresh()
		}); err != nil {
			logger.Warn("listen for users changes", slog.Any("error", err))
		}

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	usersHandler := users.NewHandler(users.HandlerConfig{
		Logger:         logger,
		Directory:      controller,
		Remote:         source,
		Templates:      templates,
		Printer:        users.NewPrinter(cfg.AppLocale),
		AdminTokenHash: cfg.AdminTokenHash,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		UsersHandler: usersHandler,
		JobHandler:   jobHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skport-checkin/config"
	"skport-checkin/handlers"
	"skport-checkin/services"
	"skport-checkin/workers"
)

const shutdownTimeout = 10 * time.Second

type cli struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	cfg    *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "skport-checkin",
		Short:         "Daily SKPort attendance check-in for one or more accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOnce(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Check in every configured account once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOnce(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the daily schedule and the status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	})

	return root
}

// setup loads .env, builds the logger and reads the configuration. A bad
// configuration is the only thing that fails the process.
func (c *cli) setup() error {
	envErr := godotenv.Load()

	c.level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zc := zap.NewProductionConfig()
	zc.Level = c.level
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger

	if envErr != nil {
		logger.Info("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("[CONFIG] ❌ invalid configuration", zap.Error(err))
		return err
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		c.level.SetLevel(lvl.Level())
	} else {
		logger.Warn("[CONFIG] ⚠️ unknown LOG_LEVEL, keeping info", zap.String("level", cfg.LogLevel))
	}
	c.cfg = cfg

	logger.Info("[CONFIG] ✅ configuration loaded",
		zap.Int("accounts", len(cfg.Profiles)),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("discord", cfg.Discord.Active()),
		zap.Bool("history_db", cfg.DatabaseURL != ""),
		zap.Bool("nats", cfg.NATSURL != ""),
		zap.Bool("r2", cfg.Archive.R2Enabled()))
	return nil
}

// runOnce executes a single batch. Account failures are reported through
// the notifiers and never change the exit status.
func (c *cli) runOnce(ctx context.Context) error {
	a := buildApp(ctx, c.cfg, c.logger)
	defer a.Close()

	if _, err := a.worker.RunOnce(ctx); err != nil {
		c.logger.Error("[RUN] ❌ run did not start", zap.Error(err))
	}
	return nil
}

func (c *cli) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.InitMetrics()

	a := buildApp(ctx, c.cfg, c.logger)
	defer a.Close()

	sched, err := services.StartCheckInScheduler(c.cfg.Schedule, func() {
		if _, err := a.worker.RunOnce(ctx); errors.Is(err, workers.ErrRunInProgress) {
			c.logger.Warn("[Scheduler] ⏭️ previous run still in progress, skipping tick")
		}
	}, c.logger)
	if err != nil {
		c.logger.Error("[Scheduler] ❌ failed to start", zap.Error(err))
		return err
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	handlers.SetupCheckInRoutes(app, &handlers.CheckInHandler{
		History: a.history,
		Trigger: a.worker,
		Logger:  c.logger,
		BaseCtx: ctx,
	}, c.cfg.AdminToken)

	go func() {
		if err := app.Listen(c.cfg.ListenAddr); err != nil {
			c.logger.Error("[API] server error", zap.Error(err))
		}
	}()
	c.logger.Info("✅ Server running", zap.String("addr", c.cfg.ListenAddr))

	<-ctx.Done()
	c.logger.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		c.logger.Warn("[Scheduler] ⚠️ shutdown error", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		c.logger.Warn("[API] ⚠️ shutdown error", zap.Error(err))
	}

	// connections are closed by a.Close, so let a manual run finish first
	a.worker.Wait()
	return nil
}

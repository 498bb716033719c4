package main

import (
	"context"
	"io"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"skport-checkin/config"
	"skport-checkin/handlers"
	"skport-checkin/services"
	"skport-checkin/utils"
	"skport-checkin/workers"
)

const memoryHistorySize = 50

type runStore interface {
	handlers.RunHistory
	workers.RunRecorder
}

type app struct {
	worker  *workers.CheckInWorker
	history runStore
	closers []io.Closer
}

// buildApp wires the check-in pipeline. Optional collaborators that fail to
// come up are logged and left out so the check-in itself still runs.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) *app {
	httpClient := utils.NewHTTPClient(cfg.HTTPTimeout)
	client := services.NewSKPortClient(cfg.BaseURL, httpClient, logger)
	checkIn := services.NewCheckInService(client, client, cfg.AccountDelay, logger)

	a := &app{worker: workers.NewCheckInWorker(checkIn, cfg.Profiles, logger)}

	a.history = a.openHistory(cfg, logger)
	a.worker.History = a.history

	switch {
	case cfg.Archive.R2Enabled():
		archive, err := utils.NewR2Archive(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("[ARCHIVE] ⚠️ R2 unavailable, reports will not be archived", zap.Error(err))
			break
		}
		a.worker.Archive = archive
	case cfg.Archive.LocalDir != "":
		archive := &utils.LocalArchive{Root: cfg.Archive.LocalDir}
		if err := archive.EnsureDir(); err != nil {
			logger.Warn("[ARCHIVE] ⚠️ report dir unavailable", zap.Error(err))
			break
		}
		a.worker.Archive = archive
	}

	if cfg.Discord.Active() {
		a.worker.Notifiers = append(a.worker.Notifiers,
			services.NewDiscordNotifier(cfg.Discord.WebhookURL, cfg.Discord.UserID, httpClient, logger))
	} else {
		logger.Info("[NOTIFY] Discord notifications disabled")
	}

	if cfg.NATSURL != "" {
		n, err := services.NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn("[NOTIFY] ⚠️ NATS unavailable, run events disabled", zap.Error(err))
		} else {
			a.worker.Notifiers = append(a.worker.Notifiers, n)
			a.closers = append(a.closers, n)
		}
	}

	return a
}

func (a *app) openHistory(cfg *config.Config, logger *zap.Logger) runStore {
	if cfg.DatabaseURL == "" {
		return workers.NewMemoryHistory(memoryHistorySize)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Warn("[HISTORY] ⚠️ database unavailable, keeping history in memory", zap.Error(err))
		return workers.NewMemoryHistory(memoryHistorySize)
	}
	history := services.NewHistoryService(db)
	if err := history.Migrate(); err != nil {
		logger.Warn("[HISTORY] ⚠️ migration failed, keeping history in memory", zap.Error(err))
		return workers.NewMemoryHistory(memoryHistorySize)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB)
	}
	return history
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

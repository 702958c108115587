package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/curvedhammer/Achievle/internal/config"
	"github.com/curvedhammer/Achievle/internal/repository"
	"github.com/curvedhammer/Achievle/internal/service"
)

// app wires configuration, storage and services for every subcommand.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *repository.FileStore
	events  *repository.EventRepository
	quests  *service.QuestService
	stats   *service.StatsService
	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.store = repository.NewFileStore(cfg.DataPath, logger.Named("store"), time.Now)

	var (
		journal service.Journal
		reader  service.EventReader
	)
	if cfg.JournalEnabled() {
		db, err := repository.NewDB(cfg.JournalPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("journal: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		a.events = repository.NewEventRepository(db)
		journal, reader = a.events, a.events
	} else {
		logger.Info("progress journal disabled")
	}

	a.quests, err = service.NewQuestService(a.store, journal, logger.Named("quests"), time.Now)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.stats = service.NewStatsService(a.quests, reader)
	return a, nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/querycache"
	"github.com/marcus/sheetnotes/internal/rowstore"
	"github.com/marcus/sheetnotes/internal/snapshot"
)

const snapshotSaveTimeout = 5 * time.Second

// env is everything a command needs to talk to the sheet.
type env struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	snap     *snapshot.Store
	sheetKey string
	svc      *notes.Service
}

// openEnv loads the config and builds the service. A snapshot store that
// fails to open is logged and skipped.
func openEnv(opts *rootOptions, logger *slog.Logger) (*env, error) {
	cfgPath := config.ResolvePath(opts.configPath)
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if missing := cfg.Sheet.Missing(); len(missing) > 0 {
		logger.Warn("sheet settings missing; requests will fail", "missing", strings.Join(missing, ", "))
	}

	ids, err := notes.NewIDGenerator(cfg.Notes.IDScheme)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:      cfg,
		cfgPath:  cfgPath,
		logger:   logger,
		sheetKey: snapshot.SheetKey(cfg.Sheet.SpreadsheetID, cfg.Sheet.SheetName),
	}

	if cfg.Snapshot.Enabled {
		path := cfg.Snapshot.Path
		if path == "" {
			path = snapshot.DefaultPath(config.ConfigDir())
		}
		if snap, err := snapshot.Open(path); err != nil {
			logger.Warn("snapshot store unavailable", "path", path, "err", err)
		} else {
			e.snap = snap
		}
	}

	client := rowstore.New(cfg.Sheet.ClientConfig(), rowstore.WithLogger(logger))
	cache := querycache.New(querycache.WithLogger(logger))
	e.svc = notes.NewService(client, cache, notes.Options{
		StaleTime:         cfg.Notes.StaleTime,
		VerifyRowPosition: cfg.Notes.VerifyRowPosition,
		IDs:               ids,
		Logger:            logger,
		OnLoad:            e.saveSnapshot,
	})
	return e, nil
}

// saveSnapshot stores the rows of every successful load.
func (e *env) saveSnapshot(rows [][]string, fetchedAt time.Time) {
	if e.snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
	defer cancel()
	if err := e.snap.Save(ctx, e.sheetKey, rows, fetchedAt); err != nil {
		e.logger.Warn("snapshot save failed", "err", err)
	}
}

func (e *env) Close() {
	if e.snap != nil {
		if err := e.snap.Close(); err != nil {
			e.logger.Debug("snapshot close", "err", err)
		}
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/sheetnotes/internal/app"
	"github.com/marcus/sheetnotes/internal/config"
	"github.com/marcus/sheetnotes/internal/keymap"
	"github.com/marcus/sheetnotes/internal/plugin"
	notesplugin "github.com/marcus/sheetnotes/internal/plugins/notes"
	"github.com/marcus/sheetnotes/internal/state"
)

// runTUI wires the app and runs it until the user quits.
func runTUI(opts *rootOptions) error {
	logger, logClose, err := openLogFile(opts)
	if err != nil {
		return err
	}
	defer logClose()

	e, err := openEnv(opts, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	// Persistent state is optional.
	if err := state.Init(); err != nil {
		logger.Warn("state unavailable", "err", err)
	}

	km := keymap.NewRegistry()
	keymap.RegisterDefaults(km)
	km.ApplyOverrides(e.cfg.Keymap.Overrides)

	pluginCtx := &plugin.Context{
		Config:     e.cfg,
		ConfigPath: e.cfgPath,
		Logger:     logger,
		Keymap:     km,
		Service:    e.svc,
		Snapshot:   e.snap,
		SheetKey:   e.sheetKey,
	}
	registry := plugin.NewRegistry(pluginCtx)
	if err := registry.Register(notesplugin.New()); err != nil {
		logger.Error("notes plugin unavailable", "err", err)
	}

	var updates <-chan *config.Config
	if e.cfgPath != "" {
		ch, watcher, err := config.Watch(e.cfgPath, logger)
		if err != nil {
			logger.Debug("config watch disabled", "path", e.cfgPath, "err", err)
		} else {
			defer watcher.Close()
			updates = ch
		}
	}

	model := app.New(registry, km, e.cfg, effectiveVersion(Version), updates)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

// openLogFile returns a logger writing to the TUI log file, which is
// created if needed.
func openLogFile(opts *rootOptions) (*slog.Logger, func(), error) {
	path := opts.logFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "sheetnotes.log")
	}
	path = config.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.level()}))
	return logger, func() { _ = f.Close() }, nil
}

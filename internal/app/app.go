// Package app wires the path filter, change watcher, and process
// supervisor together and runs the watch-restart loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	fsw "github.com/corey/rewatch/internal/adapters/fsnotify"
	"github.com/corey/rewatch/internal/adapters/poll"
	"github.com/corey/rewatch/internal/adapters/process"
	"github.com/corey/rewatch/internal/config"
	"github.com/corey/rewatch/internal/domain/filter"
	"github.com/corey/rewatch/internal/ports"
)

// App owns one watcher and one supervised child.
type App struct {
	cfg     *config.Config
	watcher ports.Watcher
	runner  ports.Runner
}

// New creates a fully wired App from a validated config. The watcher
// adapter is chosen here: periodic scanning when poll is set, OS change
// notification otherwise.
func New(cfg *config.Config) (*App, error) {
	f := filter.New(cfg.IgnoreDirs, cfg.Extensions)

	var watcher ports.Watcher
	if cfg.Poll {
		watcher = poll.NewWatcher(f, cfg.Debounce, cfg.PollInterval)
	} else {
		fw, err := fsw.NewWatcher(f, cfg.Debounce)
		if err != nil {
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		watcher = fw
	}

	return &App{
		cfg:     cfg,
		watcher: watcher,
		runner:  process.NewSupervisor(cfg.Command, cfg.Root, cfg.Grace),
	}, nil
}

// Run starts watching and launches the child, then loops until the
// context is cancelled or the watcher reports an unrecoverable error.
// Each change event restarts the child inline, so restarts are
// serialized by the loop itself: changes arriving mid-restart coalesce
// into the watcher's single pending event and cause at most one
// follow-up restart.
func (a *App) Run(ctx context.Context) error {
	if err := a.watcher.Watch(a.cfg.Root); err != nil {
		return fmt.Errorf("watch %s: %w", a.cfg.Root, err)
	}
	defer a.watcher.Stop()

	if a.cfg.NoRun {
		slog.Info("watching for changes, command disabled", "root", a.cfg.Root)
	} else {
		slog.Info("watching for changes", "root", a.cfg.Root, "command", a.cfg.CommandLine())
		a.launch()
	}

	for {
		// Cancellation wins over a pending change event.
		select {
		case <-ctx.Done():
			return a.shutdown(nil)
		default:
		}

		select {
		case <-ctx.Done():
			return a.shutdown(nil)

		case <-a.watcher.Events():
			a.handleChange()

		case err := <-a.watcher.Errors():
			slog.Error("watch failed", "error", err)
			return a.shutdown(err)
		}
	}
}

// launch starts the child. A spawn failure is not fatal: the loop keeps
// watching and the next change retries.
func (a *App) launch() {
	if err := a.runner.Launch(); err != nil {
		a.reportRunError(err)
	}
}

// handleChange performs one restart, or just reports the change when
// nothing is supposed to run.
func (a *App) handleChange() {
	if a.cfg.NoRun {
		slog.Info("change detected")
		return
	}

	slog.Info("change detected, restarting", "command", a.cfg.CommandLine())
	if err := a.runner.Restart(); err != nil {
		a.reportRunError(err)
	}
}

// shutdown stops the child and hands back the loop's result. Terminate
// detects a child that is already gone, so this is safe in every state
// including when nothing was ever launched.
func (a *App) shutdown(cause error) error {
	slog.Info("shutting down")
	if err := a.runner.Terminate(); err != nil {
		slog.Warn("terminate failed", "error", err)
	}
	a.runner.WaitExited()
	return cause
}

func (a *App) reportRunError(err error) {
	var spawnErr *process.SpawnError
	if errors.As(err, &spawnErr) {
		slog.Error("command failed to start, still watching", "error", err)
		return
	}
	slog.Error("run failed", "error", err)
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tubecast/internal/config"
	"tubecast/internal/httpapi"
	"tubecast/internal/logging"
	"tubecast/internal/pipeline"
	"tubecast/internal/store"
)

// Daemon coordinates the long-running services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	server   *httpapi.Server
	launcher *pipeline.Launcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, server *httpapi.Server, launcher *pipeline.Launcher) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || server == nil || launcher == nil {
		return nil, errors.New("daemon requires config, store, logger, server, and launcher")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tubecastd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		server:   server,
		launcher: launcher,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tubecast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.server.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start http server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("tubecast daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the HTTP surface, waits for in-flight pipeline runs, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.launcher.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tubecast daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Package app wires the service components together and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"chatrelay/internal/sweeper"
	"chatrelay/pkg/config"
	"chatrelay/pkg/gateway"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/messages"
	"chatrelay/pkg/presence"
	"chatrelay/pkg/router"
	"chatrelay/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st        *store.Store
	dir       *presence.Directory
	mlog      *messages.Log
	ibx       *messages.Inbox
	gw        *gateway.Gateway
	rt        *router.Router
	diskGauge prometheus.Collector

	sweepCancel context.CancelFunc
	srv         *http.Server
}

// New validates the effective config, opens the store and builds the
// component graph. It does not start the sweeper or the HTTP server; call
// Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	st, err := store.Open(eff.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}
	diskGauge := registerDiskGauge(st)

	dir := presence.New(st)
	mlog := messages.NewLog(st)
	ibx := messages.NewInbox(st)

	gw := gateway.New(gateway.Config{
		PingInterval:    eff.Config.Gateway.PingInterval.Duration(),
		WriteTimeout:    eff.Config.Gateway.WriteTimeout.Duration(),
		MaxMessageBytes: eff.Config.Gateway.MaxMessageBytes.Int64(),
	})
	rt := router.New(dir, mlog, ibx, gw)
	gw.Bind(rt)

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		st:        st,
		dir:       dir,
		mlog:      mlog,
		ibx:       ibx,
		gw:        gw,
		rt:        rt,
		diskGauge: diskGauge,
	}, nil
}

// Run starts the sweeper and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	cancel, err := sweeper.Start(ctx, a.eff.Config.Sweeper, a.dir)
	if err != nil {
		return err
	}
	a.sweepCancel = cancel

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown stops background work, drains the HTTP server and closes the
// store.
func (a *App) shutdown() {
	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_failed", "error", err)
		}
	}
	if a.diskGauge != nil {
		prometheus.Unregister(a.diskGauge)
	}
	if a.st != nil {
		if err := a.st.Close(); err != nil {
			logger.Warn("store_close_failed", "error", err)
		}
	}
	logger.Info("shutdown_complete")
}

// registerDiskGauge registers an on-disk size gauge bound to this store. The
// gauge is unregistered on shutdown so a later App reports its own store
// directory, not the first one opened in the process. A registration clash
// (two live Apps in one process) is logged and skipped rather than fatal.
func registerDiskGauge(st *store.Store) prometheus.Collector {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chatrelay_store_disk_bytes",
		Help: "Approximate on-disk size of the store directory.",
	}, func() float64 {
		return float64(st.DiskUsage())
	})
	if err := prometheus.Register(g); err != nil {
		logger.Warn("disk_gauge_register_failed", "error", err)
		return nil
	}
	return g
}

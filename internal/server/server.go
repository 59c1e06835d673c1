// Package server assembles the relay application: it loads the persisted
// message log, builds the hub and HTTP surface, serves until its context is
// cancelled and flushes the log once on the way out.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/gorelay/internal/logging"
	"github.com/Tyrowin/gorelay/internal/relay"
	"github.com/Tyrowin/gorelay/internal/static"
	"github.com/Tyrowin/gorelay/internal/store"
)

// App is a fully wired relay server.
type App struct {
	cfg          Config
	logger       *slog.Logger
	store        *store.File
	relay        *relay.Relay
	hub          *Hub
	metrics      *prometheus.Registry
	handler      http.Handler
	httpServer   *http.Server
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApp builds an App from cfg. The persistence file is read here; if it is
// missing, unreadable or malformed the server starts with an empty log.
func NewApp(cfg Config, logger *slog.Logger) (*App, error) {
	cfg = sanitizeConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	file := store.NewFile(cfg.MessagesFile)
	messages, err := file.Load()
	if err != nil {
		logger.Warn("starting with an empty message log", "file", file.Path(), "error", err)
	}
	logger.Info("message log loaded", "file", file.Path(), "messages", len(messages))

	r := relay.New(relay.NewLog(messages), relay.NewRegistry())

	var (
		reg     *prometheus.Registry
		metrics *Metrics
	)
	if cfg.MetricsEnabled {
		reg = NewMetricsRegistry()
		metrics = NewMetrics(reg)
	}

	hub := NewHub(r, cfg, metrics, logger)
	handlers := NewHandlers(cfg, hub, r.Log(), static.NewDirResolver(cfg.StaticDir), logger)
	handler := SetupRoutes(cfg, handlers, reg)

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      file,
		relay:      r,
		hub:        hub,
		metrics:    reg,
		handler:    handler,
		httpServer: CreateServer(cfg.Addr, handler),
	}, nil
}

// Config returns the sanitized configuration the app runs with.
func (a *App) Config() Config {
	return a.cfg
}

// Handler returns the app's HTTP handler, for mounting in tests or another server.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Hub returns the connection hub.
func (a *App) Hub() *Hub {
	return a.hub
}

// Log returns the in-memory message log.
func (a *App) Log() *relay.Log {
	return a.relay.Log()
}

// StartHub starts the hub's event loop. Run calls it; tests serving Handler
// through their own server call it directly.
func (a *App) StartHub() {
	a.hub.Start()
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down and flushes the log.
func (a *App) Run(ctx context.Context) error {
	a.StartHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := StartServer(a.httpServer, a.logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown()
	})
	return g.Wait()
}

// Shutdown stops accepting requests, closes every relay connection and
// writes the log to the persistence file. Only the first call does any work.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		var errs []error
		if err := ShutdownServer(a.httpServer, a.cfg.ShutdownTimeout, a.logger); err != nil {
			errs = append(errs, err)
		}
		if err := a.hub.Shutdown(a.cfg.ShutdownTimeout); err != nil {
			errs = append(errs, err)
		}
		if err := a.flush(); err != nil {
			errs = append(errs, err)
		}
		a.shutdownErr = errors.Join(errs...)
	})
	return a.shutdownErr
}

func (a *App) flush() error {
	messages := a.relay.Log().Snapshot()
	if err := a.store.Save(messages); err != nil {
		a.logger.Error("failed to persist message log", "file", a.store.Path(), "error", err)
		return err
	}
	a.logger.Info("message log persisted", "file", a.store.Path(), "messages", len(messages))
	return nil
}

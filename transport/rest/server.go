package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// Options - everything the HTTP surface is built from.
type Options struct {
	Page     pageUseCase
	Sockets  subscriber
	Ping     PingHandler
	Gatherer prometheus.Gatherer
	Links    Links
	Presets  []string
}

func New(logger *slog.Logger, port string, opts Options) *Server {
	return &Server{
		logger: logger.With("component", "http"),
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(logger, opts),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       30 * time.Second,
		},
	}
}

// NewRouter - routes of the page, its actions and the service endpoints.
func NewRouter(logger *slog.Logger, opts Options) http.Handler {
	h := &handlers{
		logger:  logger.With("component", "handlers"),
		page:    opts.Page,
		sockets: opts.Sockets,
		links:   opts.Links,
		presets: opts.Presets,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.PageHandler)
	mux.HandleFunc("GET /api/state", h.StateHandler)
	mux.HandleFunc("GET /ws", h.SocketHandler)

	mux.HandleFunc("POST /actions/fund", h.FundHandler)
	mux.HandleFunc("POST /actions/create", h.CreateHandler)
	mux.HandleFunc("POST /actions/play", h.PlayHandler)
	mux.HandleFunc("POST /actions/refresh", h.RefreshHandler)
	mux.HandleFunc("POST /actions/reset", h.ResetHandler)

	mux.HandleFunc("POST /dev/clone", h.CloneHandler)
	mux.HandleFunc("POST /dev/restart", h.RestartHandler)
	mux.HandleFunc("POST /dev/snapshot", h.SnapshotHandler)
	mux.HandleFunc("POST /dev/restore", h.RestoreHandler)
	mux.HandleFunc("POST /dev/preset/{name}", h.PresetHandler)
	mux.HandleFunc("POST /dev/snapshots/delete", h.DeleteSnapshotsHandler)
	mux.HandleFunc("POST /dev/label", h.LabelHandler)

	if opts.Ping != nil {
		mux.HandleFunc("GET /ping", opts.Ping.PingHandler)
	}

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Start - serves until ctx is done, then shuts the server down.
func (that *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("Starting HTTP server", "addr", that.srv.Addr)
		if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := that.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	that.logger.Info("HTTP server stopped")

	return nil
}

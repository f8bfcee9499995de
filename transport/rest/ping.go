package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const pingTimeout = 3 * time.Second

// Check - a dependency the service cannot work without.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type PingHandler interface {
	PingHandler(w http.ResponseWriter, r *http.Request)
}

type pingHandler struct {
	logger *slog.Logger
	checks []Check
}

func NewPingHandler(logger *slog.Logger, checks ...Check) PingHandler {
	return &pingHandler{
		logger: logger.With("component", "ping"),
		checks: checks,
	}
}

func (that *pingHandler) PingHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	for _, check := range that.checks {
		if err := check.Ping(ctx); err != nil {
			that.logger.Warn("dependency is down", "dependency", check.Name, "error", err)
			http.Error(w, check.Name+" is unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

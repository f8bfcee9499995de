package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tictactoe"

// Metrics - counters and timings of remote calls and page actions.
type Metrics struct {
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	actions        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Remote calls to the validator and the development environment.",
		}, []string{"target", "method", "outcome"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of remote calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "method"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_actions_total",
			Help:      "Page actions by name and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(m.remoteCalls, m.remoteDuration, m.actions)

	return m
}

// ObserveRemote - records one remote call.
func (that *Metrics) ObserveRemote(target, method string, started time.Time, err error) {
	if that == nil {
		return
	}

	that.remoteCalls.WithLabelValues(target, method, outcome(err)).Inc()
	that.remoteDuration.WithLabelValues(target, method).Observe(time.Since(started).Seconds())
}

// ObserveAction - records one page action.
func (that *Metrics) ObserveAction(action string, err error) {
	if that == nil {
		return
	}

	that.actions.WithLabelValues(action, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}

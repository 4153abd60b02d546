// Package metrics exposes the monitor's Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message sources.
const (
	SourceLive     = "live"
	SourcePoll     = "poll"
	SourceBackfill = "backfill"
)

var (
	MessagesSeen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgwatch",
		Name:      "messages_seen_total",
		Help:      "Posts examined by the matcher, by source.",
	}, []string{"source"})

	Matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgwatch",
		Name:      "matches_total",
		Help:      "Posts that contained at least one keyword, by source.",
	}, []string{"source"})

	Forwards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgwatch",
		Name:      "forwards_total",
		Help:      "Forward attempts by outcome.",
	}, []string{"outcome"})

	PollCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgwatch",
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles by result.",
	}, []string{"result"})

	ResolveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tgwatch",
		Name:      "resolve_failures_total",
		Help:      "Channel identifiers that could not be resolved.",
	})
)

func init() {
	prometheus.MustRegister(MessagesSeen, Matches, Forwards, PollCycles, ResolveFailures)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

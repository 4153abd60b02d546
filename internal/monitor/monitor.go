package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
	"github.com/nextlevelbuilder/tgwatch/internal/matcher"
	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
)

// DefaultRetryDelay is the pause after a failed poll cycle.
const DefaultRetryDelay = 10 * time.Second

// Monitor runs backfill, live listening and polling on one goroutine.
type Monitor struct {
	client    Client
	state     *state.State
	resolver  *Resolver
	forwarder *Forwarder
	matcher   *matcher.Matcher

	channels []string
	backfill bool
	interval time.Duration
	batch    int
	schedule string

	now        func() time.Time
	retryDelay time.Duration

	// watched holds the chat IDs whose live events are processed.
	watched map[int64]bool
	reloads chan config.MonitorConfig
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithRetryDelay sets the pause after a failed poll cycle.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Monitor) { m.retryDelay = d }
}

// New creates a Monitor. st is loaded by Run.
func New(cfg config.MonitorConfig, client Client, st *state.State, opts ...Option) *Monitor {
	ratePerSec, burst := cfg.Rate()
	m := &Monitor{
		client:     client,
		state:      st,
		resolver:   NewResolver(client),
		forwarder:  NewForwarder(client, st, string(cfg.Target), ratePerSec, burst),
		matcher:    matcher.New(cfg.Keywords),
		channels:   append([]string(nil), cfg.Channels...),
		backfill:   cfg.BackfillEnabled(),
		interval:   cfg.Interval(),
		batch:      cfg.Batch(),
		schedule:   cfg.PollSchedule,
		now:        time.Now,
		retryDelay: DefaultRetryDelay,
		watched:    make(map[int64]bool),
		reloads:    make(chan config.MonitorConfig, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reload replaces the keyword and channel lists. The change is applied on the
// Run goroutine; if an earlier reload is still pending it is superseded.
func (m *Monitor) Reload(cfg config.MonitorConfig) {
	for {
		select {
		case m.reloads <- cfg:
			return
		default:
		}
		select {
		case <-m.reloads:
		default:
		}
	}
}

// Run loads state, backfills and then processes events and poll cycles until
// ctx is done. State is flushed before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.state.Load()
	m.resolveWatched(ctx)

	events, err := m.client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	slog.Info("monitor started",
		"channels", len(m.channels),
		"watched", len(m.watched),
		"keywords", len(m.matcher.Keywords()),
	)

	if m.backfill {
		m.runBackfill(ctx)
	}
	m.state.SetLastRun(m.now())
	if err := m.state.SaveLastRun(); err != nil {
		slog.Error("failed to persist last run", "error", err)
	}
	if err := m.state.SaveSentMessages(); err != nil {
		slog.Error("failed to persist sent messages", "error", err)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.flush()
			return nil

		case msg, ok := <-events:
			if !ok {
				m.flush()
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("update stream closed")
			}
			m.handleEvent(ctx, msg)

		case <-timer.C:
			timer.Reset(m.pollCycle(ctx))

		case cfg := <-m.reloads:
			m.applyReload(ctx, cfg)
		}
	}
}

// process runs msg through the matcher and forwards it on a match.
func (m *Monitor) process(ctx context.Context, msg Message, source string) {
	if msg.Text == "" {
		return
	}
	metrics.MessagesSeen.WithLabelValues(source).Inc()
	if !m.matcher.Match(msg.Text).Matched() {
		return
	}
	metrics.Matches.WithLabelValues(source).Inc()
	m.forwarder.Forward(ctx, msg)
}

// resolveWatched rebuilds the live event filter from the configured channels.
func (m *Monitor) resolveWatched(ctx context.Context) {
	watched := make(map[int64]bool, len(m.channels))
	for _, ref := range m.channels {
		peer, ok := m.resolver.Resolve(ctx, ref)
		if !ok {
			metrics.ResolveFailures.Inc()
			continue
		}
		watched[peer.ID] = true
	}
	m.watched = watched
}

func (m *Monitor) applyReload(ctx context.Context, cfg config.MonitorConfig) {
	m.matcher = matcher.New(cfg.Keywords)
	m.channels = append([]string(nil), cfg.Channels...)
	m.resolveWatched(ctx)
	slog.Info("monitor config reloaded",
		"channels", len(m.channels),
		"watched", len(m.watched),
		"keywords", len(m.matcher.Keywords()),
	)
}

func (m *Monitor) flush() {
	if err := m.state.SaveAll(); err != nil {
		slog.Error("failed to flush state", "error", err)
		return
	}
	slog.Info("state flushed", "sent", m.state.SentCount())
}

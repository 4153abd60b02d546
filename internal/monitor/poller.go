package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
	"github.com/nextlevelbuilder/tgwatch/internal/tracing"
)

// pollCycle runs one sweep and returns the delay until the next one.
func (m *Monitor) pollCycle(ctx context.Context) time.Duration {
	if err := m.pollOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return m.retryDelay
		}
		metrics.PollCycles.WithLabelValues("error").Inc()
		slog.Error("poll cycle failed", "error", err, "retry_in", m.retryDelay)
		return m.retryDelay
	}
	metrics.PollCycles.WithLabelValues("ok").Inc()
	return m.nextPollDelay()
}

// pollOnce fetches the most recent posts of every configured channel. A
// failed history fetch aborts the sweep; unresolvable channels are skipped.
func (m *Monitor) pollOnce(ctx context.Context) (err error) {
	cycle := uuid.NewString()[:8]
	ctx, span := tracing.Tracer().Start(ctx, "monitor.poll")
	span.SetAttributes(attribute.String("cycle", cycle))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := slog.With("cycle", cycle)
	log.Debug("poll cycle started", "channels", len(m.channels))

	for _, ref := range m.channels {
		if err := ctx.Err(); err != nil {
			return err
		}
		peer, ok := m.resolver.Resolve(ctx, ref)
		if !ok {
			metrics.ResolveFailures.Inc()
			continue
		}
		if peer.Kind != KindChannel {
			log.Warn("not a channel, skipping", "channel", ref, "kind", peer.Kind)
			continue
		}
		// channels that failed to resolve at startup start streaming once found
		m.watched[peer.ID] = true

		msgs, err := m.client.History(ctx, peer, HistoryQuery{Limit: m.batch})
		if err != nil {
			return fmt.Errorf("fetch history of %s: %w", ref, err)
		}
		for _, msg := range msgs {
			m.process(ctx, msg, metrics.SourcePoll)
		}
	}

	m.state.SetLastRun(m.now())
	if err := m.state.SaveLastRun(); err != nil {
		return fmt.Errorf("save last run: %w", err)
	}
	if err := m.state.SaveSentMessages(); err != nil {
		return fmt.Errorf("save sent messages: %w", err)
	}
	log.Debug("poll cycle finished", "sent", m.state.SentCount())
	return nil
}

// nextPollDelay uses the cron schedule when one is configured, otherwise the
// fixed interval.
func (m *Monitor) nextPollDelay() time.Duration {
	if m.schedule == "" {
		return m.interval
	}
	now := m.now()
	next, err := gronx.NextTickAfter(m.schedule, now, false)
	if err != nil {
		slog.Warn("invalid poll schedule, using interval", "schedule", m.schedule, "error", err)
		return m.interval
	}
	if d := next.Sub(now); d > 0 {
		return d
	}
	return time.Second
}

package monitor

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
	"github.com/nextlevelbuilder/tgwatch/internal/tracing"
)

// runBackfill scans every configured channel for posts dated at or after the
// last run. Nothing is fetched on the first run.
func (m *Monitor) runBackfill(ctx context.Context) {
	since := m.state.LastRun()
	if since.IsZero() {
		slog.Info("first run, skipping backfill")
		return
	}

	ctx, span := tracing.Tracer().Start(ctx, "monitor.backfill")
	defer span.End()
	span.SetAttributes(attribute.Int64("since", since.Unix()))

	slog.Info("backfilling missed posts", "since", since.Format("2006-01-02 15:04:05"))
	for _, ref := range m.channels {
		if ctx.Err() != nil {
			break
		}
		m.backfillChannel(ctx, ref)
	}

	if err := m.state.SaveLastMessages(); err != nil {
		slog.Error("failed to persist last messages", "error", err)
	}
}

func (m *Monitor) backfillChannel(ctx context.Context, ref string) {
	peer, ok := m.resolver.Resolve(ctx, ref)
	if !ok {
		metrics.ResolveFailures.Inc()
		return
	}
	if peer.Kind != KindChannel {
		slog.Warn("not a channel, skipping", "channel", ref, "kind", peer.Kind)
		return
	}

	msgs, err := m.client.History(ctx, peer, HistoryQuery{Since: m.state.LastRun()})
	if err != nil {
		slog.Error("backfill fetch failed", "channel", ref, "error", err)
		return
	}

	newest := 0
	for _, msg := range msgs {
		m.process(ctx, msg, metrics.SourceBackfill)
		newest = max(newest, msg.ID)
	}
	if newest > 0 {
		m.state.SetLastMessage(peer.Key(), newest)
	}
	slog.Info("channel backfilled", "channel", ref, "posts", len(msgs))
}

package monitor

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
	"github.com/nextlevelbuilder/tgwatch/internal/tracing"
)

// Outcome is the result of a forward attempt.
type Outcome int

const (
	Forwarded Outcome = iota
	AlreadySent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Forwarded:
		return "forwarded"
	case AlreadySent:
		return "already_sent"
	default:
		return "failed"
	}
}

// Forwarder sends matching messages to the destination chat at most once.
type Forwarder struct {
	client  Client
	state   *state.State
	target  string
	limiter *rate.Limiter

	dest    Peer
	hasDest bool
}

// NewForwarder creates a Forwarder for the destination target. ratePerSec <= 0
// disables rate limiting.
func NewForwarder(client Client, st *state.State, target string, ratePerSec float64, burst int) *Forwarder {
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Forwarder{
		client:  client,
		state:   st,
		target:  target,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Forward forwards msg unless its hash is already recorded. Errors are logged
// and reported as Failed; the message is then left unmarked so a later pass
// can retry it.
func (f *Forwarder) Forward(ctx context.Context, msg Message) Outcome {
	ctx, span := tracing.Tracer().Start(ctx, "monitor.forward")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chat.id", msg.ChatID),
		attribute.Int("message.id", msg.ID),
	)

	outcome := f.forward(ctx, msg)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == Failed {
		span.SetStatus(codes.Error, "forward failed")
	}
	metrics.Forwards.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (f *Forwarder) forward(ctx context.Context, msg Message) Outcome {
	hash := Hash(msg)
	if f.state.IsSent(hash) {
		slog.Debug("message already forwarded", "chat", msg.ChatID, "msg", msg.ID)
		return AlreadySent
	}

	dest, err := f.destination(ctx)
	if err != nil {
		slog.Error("forward destination unavailable", "target", f.target, "error", err)
		return Failed
	}

	if err := f.limiter.Wait(ctx); err != nil {
		slog.Warn("forward cancelled", "chat", msg.ChatID, "msg", msg.ID, "error", err)
		return Failed
	}

	if err := f.client.Forward(ctx, dest, msg); err != nil {
		slog.Error("forward failed", "chat", msg.ChatID, "msg", msg.ID, "target", dest.ID, "error", err)
		f.hasDest = false
		return Failed
	}

	f.state.MarkSent(hash)
	if err := f.state.SaveSentMessages(); err != nil {
		slog.Error("failed to persist sent messages", "error", err)
	}
	slog.Info("message forwarded", "chat", msg.ChatID, "msg", msg.ID, "target", dest.ID)
	return Forwarded
}

// destination resolves the target chat, falling back to a dialog scan by
// numeric ID and then by exact title.
func (f *Forwarder) destination(ctx context.Context) (Peer, error) {
	if f.hasDest {
		return f.dest, nil
	}
	ref := strings.TrimSpace(f.target)
	if ref == "" {
		return Peer{}, errors.New("no target configured")
	}

	peer, err := f.client.Resolve(ctx, ref)
	if err != nil {
		slog.Debug("target lookup failed, scanning dialogs", "target", f.target, "error", err)
		var ok bool
		peer, ok, err = f.scanDialogs(ctx)
		if err != nil {
			return Peer{}, err
		}
		if !ok {
			return Peer{}, ErrNotFound
		}
	}

	f.dest, f.hasDest = peer, true
	return peer, nil
}

func (f *Forwarder) scanDialogs(ctx context.Context) (Peer, bool, error) {
	dialogs, err := f.client.Dialogs(ctx)
	if err != nil {
		return Peer{}, false, err
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(f.target), 10, 64); err == nil {
		for _, d := range dialogs {
			if d.ID == id {
				return d, true, nil
			}
		}
	}
	for _, d := range dialogs {
		if d.Title == f.target {
			return d, true, nil
		}
	}
	return Peer{}, false, nil
}

package monitor

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/nextlevelbuilder/tgwatch/internal/metrics"
)

// handleEvent processes one live post from a watched chat and records it as
// the chat's last seen message.
func (m *Monitor) handleEvent(ctx context.Context, msg Message) {
	if !m.watched[msg.ChatID] || msg.Text == "" {
		return
	}

	m.process(ctx, msg, metrics.SourceLive)

	m.state.SetLastMessage(strconv.FormatInt(msg.ChatID, 10), msg.ID)
	if err := m.state.SaveLastMessages(); err != nil {
		slog.Error("failed to persist last messages", "error", err)
	}
}

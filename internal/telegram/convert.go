package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/tgwatch/internal/journal"
	"github.com/nextlevelbuilder/tgwatch/internal/monitor"
)

var urlPrefixes = []string{"https://t.me/", "http://t.me/", "t.me/"}

// parseRef splits a channel reference into a numeric chat ID or a username.
// "t.me/c/<id>/..." links address private channels by their internal ID.
func parseRef(ref string) (int64, string, error) {
	ref = strings.TrimSpace(ref)
	for _, p := range urlPrefixes {
		if rest, ok := strings.CutPrefix(ref, p); ok {
			rest, _, _ = strings.Cut(rest, "?")
			parts := strings.Split(rest, "/")
			if parts[0] == "c" && len(parts) > 1 {
				id, err := strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					return 0, "", fmt.Errorf("invalid private link %q", ref)
				}
				return -1000000000000 - id, "", nil
			}
			if parts[0] == "" || strings.HasPrefix(parts[0], "+") || strings.HasPrefix(parts[0], "joinchat") {
				return 0, "", fmt.Errorf("cannot resolve invite link %q", ref)
			}
			return 0, parts[0], nil
		}
	}
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		if name == "" {
			return 0, "", errors.New("empty handle")
		}
		return 0, name, nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("unsupported chat reference %q", ref)
	}
	return id, "", nil
}

func peerKind(chatType string) monitor.PeerKind {
	switch chatType {
	case telego.ChatTypeChannel, telego.ChatTypeSupergroup:
		return monitor.KindChannel
	case telego.ChatTypeGroup:
		return monitor.KindGroup
	default:
		return monitor.KindUser
	}
}

func chatTitle(title, first, last string) string {
	if title != "" {
		return title
	}
	return strings.TrimSpace(first + " " + last)
}

func telegoPeer(ch telego.Chat) monitor.Peer {
	return monitor.Peer{
		ID:       ch.ID,
		Kind:     peerKind(ch.Type),
		Title:    chatTitle(ch.Title, ch.FirstName, ch.LastName),
		Username: ch.Username,
	}
}

func chatPeer(ch journal.Chat) monitor.Peer {
	return monitor.Peer{
		ID:       ch.ID,
		Kind:     monitor.PeerKind(ch.Kind),
		Title:    ch.Title,
		Username: ch.Username,
	}
}

// messageText returns the text of a post, or the caption for media posts.
func messageText(m *telego.Message) string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "chat not found")
}

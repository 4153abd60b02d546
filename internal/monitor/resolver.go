package monitor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// RefKind is the form of a configured channel identifier.
type RefKind int

const (
	RefTitle RefKind = iota
	RefURL
	RefHandle
	RefID
)

func (k RefKind) String() string {
	switch k {
	case RefURL:
		return "url"
	case RefHandle:
		return "handle"
	case RefID:
		return "id"
	default:
		return "title"
	}
}

var numericRef = regexp.MustCompile(`^-?\d+$`)

var urlPrefixes = []string{"https://t.me/", "http://t.me/", "t.me/"}

// ClassifyRef reports which of the four identifier forms ref uses.
func ClassifyRef(ref string) RefKind {
	switch {
	case hasURLPrefix(ref):
		return RefURL
	case strings.HasPrefix(ref, "@"):
		return RefHandle
	case numericRef.MatchString(ref):
		return RefID
	default:
		return RefTitle
	}
}

func hasURLPrefix(ref string) bool {
	for _, p := range urlPrefixes {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return false
}

// Resolver maps configured channel identifiers to peers.
type Resolver struct {
	client Client
}

// NewResolver creates a Resolver backed by client.
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the peer for ref. Failures are logged and reported as
// found=false; Resolve never returns an error. Surrounding spaces are ignored
// for handles, links and IDs; titles are compared as given.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Peer, bool) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return Peer{}, false
	}

	kind := ClassifyRef(trimmed)
	if kind != RefTitle {
		peer, err := r.client.Resolve(ctx, trimmed)
		if err != nil {
			slog.Warn("channel lookup failed", "channel", ref, "form", kind.String(), "error", err)
			return Peer{}, false
		}
		return peer, true
	}

	peer, ok, err := r.findByTitle(ctx, ref)
	if err != nil {
		slog.Warn("channel lookup failed", "channel", ref, "form", kind.String(), "error", err)
		return Peer{}, false
	}
	if !ok {
		slog.Warn("channel not found by title", "channel", ref)
		return Peer{}, false
	}
	return peer, true
}

// findByTitle returns the first channel dialog whose title equals title exactly.
func (r *Resolver) findByTitle(ctx context.Context, title string) (Peer, bool, error) {
	dialogs, err := r.client.Dialogs(ctx)
	if err != nil {
		return Peer{}, false, err
	}
	for _, d := range dialogs {
		if d.Kind == KindChannel && d.Title == title {
			return d, true, nil
		}
	}
	return Peer{}, false, nil
}

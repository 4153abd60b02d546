// Package monitor watches channels for keyword matches and forwards matching
// posts to a destination chat, remembering what was already forwarded.
//
// Three paths feed the same match/forward pipeline: a startup backfill of
// posts missed since the last run, live new-post events, and a periodic
// safety-net poll. They all run on the single Monitor.Run goroutine and share
// one *state.State, so a post seen by more than one path is forwarded at most
// once.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned by Client implementations when a chat cannot be found.
var ErrNotFound = errors.New("not found")

// PeerKind classifies a resolved chat.
type PeerKind string

const (
	KindUser    PeerKind = "user"
	KindGroup   PeerKind = "group"
	KindChannel PeerKind = "channel" // broadcast channels and supergroups
)

// Peer is a resolved chat handle.
type Peer struct {
	ID       int64
	Kind     PeerKind
	Title    string
	Username string
}

// Key is the string form of the chat ID used in persisted state.
func (p Peer) Key() string { return strconv.FormatInt(p.ID, 10) }

// Message is a post observed in a chat. Text holds the caption for media posts.
type Message struct {
	ChatID int64
	ID     int
	Text   string
	Date   time.Time
}

// HistoryQuery bounds a history fetch. Limit <= 0 means no count bound; a zero
// Since means no date bound. Since is inclusive.
type HistoryQuery struct {
	Limit int
	Since time.Time
}

// Client is the messaging capability the monitor depends on for all network I/O.
type Client interface {
	// Resolve looks up a chat by @handle, t.me URL or numeric ID.
	Resolve(ctx context.Context, ref string) (Peer, error)
	// Dialogs lists the chats known to the account.
	Dialogs(ctx context.Context) ([]Peer, error)
	// History returns posts of peer, newest first.
	History(ctx context.Context, peer Peer, q HistoryQuery) ([]Message, error)
	// Forward forwards msg into the chat to.
	Forward(ctx context.Context, to Peer, msg Message) error
	// Subscribe streams new posts from every chat the account can see. The
	// channel is closed when ctx is done or the subscription ends.
	Subscribe(ctx context.Context) (<-chan Message, error)
}

// Hash is the dedup key of a message: chat ID, message ID and text. Editing
// the text of a post yields a different hash.
func Hash(msg Message) string {
	return strconv.FormatInt(msg.ChatID, 10) + "_" + strconv.Itoa(msg.ID) + "_" + msg.Text
}

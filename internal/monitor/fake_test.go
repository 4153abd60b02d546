package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
	"github.com/nextlevelbuilder/tgwatch/internal/state"
)

// fakeClient is an in-memory Client.
type fakeClient struct {
	mu sync.Mutex

	peers      map[string]Peer // by ref
	dialogs    []Peer
	history    map[int64][]Message // newest first
	historyErr error
	failFor    map[int64]error // per-chat history errors
	panicOn    int64

	historyCalls []HistoryQuery
	dialogCalls  int
	forwarded    []Message
	forwardedTo  []Peer
	forwardErr   error
	forwardedCh  chan Message

	events chan Message
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		peers:   make(map[string]Peer),
		history: make(map[int64][]Message),
		events:  make(chan Message, 16),
	}
}

func (f *fakeClient) Resolve(_ context.Context, ref string) (Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[ref]
	if !ok {
		return Peer{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeClient) Dialogs(context.Context) ([]Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialogCalls++
	return append([]Peer(nil), f.dialogs...), nil
}

func (f *fakeClient) History(_ context.Context, peer Peer, q HistoryQuery) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn != 0 && f.panicOn == peer.ID {
		panic("history exploded")
	}
	f.historyCalls = append(f.historyCalls, q)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if err := f.failFor[peer.ID]; err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range f.history[peer.ID] {
		if !q.Since.IsZero() && m.Date.Before(q.Since) {
			continue
		}
		out = append(out, m)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeClient) Forward(_ context.Context, to Peer, msg Message) error {
	f.mu.Lock()
	if f.forwardErr != nil {
		err := f.forwardErr
		f.mu.Unlock()
		return err
	}
	f.forwarded = append(f.forwarded, msg)
	f.forwardedTo = append(f.forwardedTo, to)
	ch := f.forwardedCh
	f.mu.Unlock()
	if ch != nil {
		ch <- msg
	}
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-f.events:
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeClient) historySnapshot() []HistoryQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]HistoryQuery(nil), f.historyCalls...)
}

func (f *fakeClient) forwardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forwarded)
}

var errBoom = errors.New("boom")

const (
	chanID   int64 = -1001234567890
	targetID int64 = -1009999999999
)

// newTestMonitor wires a monitor with one channel "@shop" and target "@deals".
func newTestMonitor(t *testing.T, keywords ...string) (*Monitor, *fakeClient, *state.State) {
	t.Helper()
	return newTestMonitorWith(t, func(cfg *config.MonitorConfig) { cfg.Keywords = keywords })
}

// newTestMonitorWith is newTestMonitor with a config hook applied before New.
func newTestMonitorWith(t *testing.T, edit func(*config.MonitorConfig)) (*Monitor, *fakeClient, *state.State) {
	t.Helper()
	fc := newFakeClient()
	fc.peers["@shop"] = Peer{ID: chanID, Kind: KindChannel, Title: "Shop"}
	fc.peers["@deals"] = Peer{ID: targetID, Kind: KindChannel, Title: "Deals"}

	dir := t.TempDir()
	st := state.New(state.Paths{
		LastMessages: filepath.Join(dir, "last_messages.json"),
		SentMessages: filepath.Join(dir, "sent_messages.json"),
		LastRun:      filepath.Join(dir, "last_run.json"),
	})

	cfg := config.MonitorConfig{
		Target:      "@deals",
		Channels:    []string{"@shop"},
		ForwardRate: 1000,
	}
	edit(&cfg)
	return New(cfg, fc, st), fc, st
}

package monitor

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/tgwatch/internal/config"
)

func TestBackfillFirstRunFetchesNothing(t *testing.T) {
	m, fc, _ := newTestMonitor(t, "акция")
	fc.history[chanID] = []Message{{ChatID: chanID, ID: 1, Text: "акция", Date: time.Now()}}

	m.runBackfill(context.Background())

	if len(fc.historyCalls) != 0 {
		t.Errorf("history calls = %d, want 0", len(fc.historyCalls))
	}
	if fc.forwardCount() != 0 {
		t.Errorf("forwards = %d, want 0", fc.forwardCount())
	}
}

func TestBackfillSinceIsInclusive(t *testing.T) {
	m, fc, st := newTestMonitor(t, "акция")
	lastRun := time.Unix(1700000000, 0)
	st.SetLastRun(lastRun)
	fc.history[chanID] = []Message{
		{ChatID: chanID, ID: 12, Text: "акция после", Date: lastRun.Add(time.Second)},
		{ChatID: chanID, ID: 11, Text: "акция ровно", Date: lastRun},
		{ChatID: chanID, ID: 10, Text: "акция до", Date: lastRun.Add(-time.Second)},
	}

	m.runBackfill(context.Background())

	if len(fc.historyCalls) != 1 || !fc.historyCalls[0].Since.Equal(lastRun) {
		t.Fatalf("history calls = %+v", fc.historyCalls)
	}
	var ids []int
	for _, msg := range fc.forwarded {
		ids = append(ids, msg.ID)
	}
	if len(ids) != 2 || ids[0] != 12 || ids[1] != 11 {
		t.Errorf("forwarded %v, want [12 11]", ids)
	}
	if id, _ := st.LastMessage(Peer{ID: chanID}.Key()); id != 12 {
		t.Errorf("last message = %d, want 12", id)
	}
	if _, err := os.Stat(st.Paths().LastMessages); err != nil {
		t.Errorf("last messages not persisted: %v", err)
	}
}

func TestBackfillSkipsNonChannels(t *testing.T) {
	m, fc, st := newTestMonitor(t, "акция")
	st.SetLastRun(time.Unix(1700000000, 0))
	fc.peers["@shop"] = Peer{ID: 5, Kind: KindUser}

	m.runBackfill(context.Background())

	if len(fc.historyCalls) != 0 {
		t.Errorf("history calls = %d, want 0", len(fc.historyCalls))
	}
}

func TestLiveEventForwarded(t *testing.T) {
	m, fc, st := newTestMonitor(t, "акция")
	ctx := context.Background()
	m.resolveWatched(ctx)

	msg := Message{ChatID: chanID, ID: 77, Text: "Большая акция!", Date: time.Now()}
	m.handleEvent(ctx, msg)

	if fc.forwardCount() != 1 {
		t.Fatalf("forwards = %d, want 1", fc.forwardCount())
	}
	if st.SentCount() != 1 || !st.IsSent(Hash(msg)) {
		t.Errorf("sent set not updated: %v", st.SentHashes())
	}
	if id, ok := st.LastMessage(Peer{ID: chanID}.Key()); !ok || id != 77 {
		t.Errorf("last message = %d, %v; want 77", id, ok)
	}
	data, err := os.ReadFile(st.Paths().SentMessages)
	if err != nil || !strings.Contains(string(data), Hash(msg)) {
		t.Errorf("sent messages file = %q, %v", data, err)
	}
}

func TestLiveEventFiltering(t *testing.T) {
	m, fc, st := newTestMonitor(t, "акция")
	ctx := context.Background()
	m.resolveWatched(ctx)

	m.handleEvent(ctx, Message{ChatID: 999, ID: 1, Text: "акция"})
	m.handleEvent(ctx, Message{ChatID: chanID, ID: 2, Text: ""})
	m.handleEvent(ctx, Message{ChatID: chanID, ID: 3, Text: "акциями"})

	if fc.forwardCount() != 0 {
		t.Errorf("forwards = %d, want 0", fc.forwardCount())
	}
	if _, ok := st.LastMessage("999"); ok {
		t.Error("unwatched chat must not be recorded")
	}
	if id, _ := st.LastMessage(Peer{ID: chanID}.Key()); id != 3 {
		t.Errorf("last message = %d, want 3 (non-matching text still advances)", id)
	}
}

func TestLiveThenPollForwardsOnce(t *testing.T) {
	m, fc, _ := newTestMonitor(t, "акция")
	ctx := context.Background()
	m.resolveWatched(ctx)

	msg := Message{ChatID: chanID, ID: 5, Text: "Большая акция!", Date: time.Now()}
	fc.history[chanID] = []Message{msg}

	m.handleEvent(ctx, msg)
	if err := m.pollOnce(ctx); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	m.handleEvent(ctx, msg)

	if fc.forwardCount() != 1 {
		t.Errorf("forwards = %d, want 1", fc.forwardCount())
	}
}

func TestPollUsesBatchAndPersists(t *testing.T) {
	m, fc, st := newTestMonitor(t, "sale")
	now := time.Unix(1700000500, 0)
	m.now = func() time.Time { return now }

	if err := m.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if len(fc.historyCalls) != 1 || fc.historyCalls[0].Limit != config.DefaultPollBatch {
		t.Errorf("history calls = %+v", fc.historyCalls)
	}
	if !st.LastRun().Equal(now) {
		t.Errorf("last run = %v, want %v", st.LastRun(), now)
	}
	if _, err := os.Stat(st.Paths().LastRun); err != nil {
		t.Errorf("last run not persisted: %v", err)
	}
}

func TestPollCycleRecovers(t *testing.T) {
	m, fc, _ := newTestMonitor(t, "sale")
	m.retryDelay = 3 * time.Second
	ctx := context.Background()

	fc.historyErr = errBoom
	if d := m.pollCycle(ctx); d != 3*time.Second {
		t.Errorf("delay after error = %v, want retry delay", d)
	}

	fc.historyErr = nil
	fc.panicOn = chanID
	if d := m.pollCycle(ctx); d != 3*time.Second {
		t.Errorf("delay after panic = %v, want retry delay", d)
	}

	fc.panicOn = 0
	if d := m.pollCycle(ctx); d != config.DefaultPollInterval {
		t.Errorf("delay after success = %v, want %v", d, config.DefaultPollInterval)
	}
}

func TestPollSkipsUnresolved(t *testing.T) {
	m, fc, _ := newTestMonitor(t, "sale")
	m.channels = []string{"@missing", "@shop"}

	if err := m.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	if len(fc.historyCalls) != 1 {
		t.Errorf("history calls = %d, want 1", len(fc.historyCalls))
	}
}

func TestNextPollDelay(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	now := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if d := m.nextPollDelay(); d != config.DefaultPollInterval {
		t.Errorf("interval delay = %v", d)
	}
	m.schedule = "0 * * * *"
	if d := m.nextPollDelay(); d != 30*time.Minute {
		t.Errorf("schedule delay = %v, want 30m", d)
	}
}

func TestReloadReplacesKeywords(t *testing.T) {
	m, fc, _ := newTestMonitor(t, "sale")
	ctx := context.Background()

	m.Reload(config.MonitorConfig{Keywords: []string{"old"}, Channels: []string{"@shop"}})
	m.Reload(config.MonitorConfig{Keywords: []string{"акция"}, Channels: []string{"@shop"}})
	m.applyReload(ctx, <-m.reloads)

	m.handleEvent(ctx, Message{ChatID: chanID, ID: 1, Text: "акция"})
	if fc.forwardCount() != 1 {
		t.Errorf("forwards = %d, want 1", fc.forwardCount())
	}
}

func TestRunProcessesEventsAndFlushes(t *testing.T) {
	m, fc, st := newTestMonitor(t, "акция")
	fc.forwardedCh = make(chan Message, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	fc.events <- Message{ChatID: chanID, ID: 9, Text: "Большая акция!", Date: time.Now()}

	select {
	case <-fc.forwardedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("message was not forwarded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	for _, p := range []string{st.Paths().LastMessages, st.Paths().SentMessages, st.Paths().LastRun} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not flushed: %v", p, err)
		}
	}
}

func TestBackfillIsolatesChannelErrors(t *testing.T) {
	const badID int64 = -1001111111111
	m, fc, st := newTestMonitorWith(t, func(cfg *config.MonitorConfig) {
		cfg.Keywords = []string{"акция"}
		cfg.Channels = []string{"@bad", "@missing", "@shop"}
	})
	fc.peers["@bad"] = Peer{ID: badID, Kind: KindChannel, Title: "Bad"}
	fc.failFor = map[int64]error{badID: errBoom}

	lastRun := time.Unix(1700000000, 0)
	st.SetLastRun(lastRun)
	fc.history[chanID] = []Message{{ChatID: chanID, ID: 21, Text: "акция", Date: lastRun.Add(time.Minute)}}

	m.runBackfill(context.Background())

	if fc.forwardCount() != 1 || fc.forwarded[0].ID != 21 {
		t.Fatalf("forwarded = %+v, want message 21", fc.forwarded)
	}
	if id, ok := st.LastMessage(Peer{ID: chanID}.Key()); !ok || id != 21 {
		t.Errorf("last message = %d, %v; want 21", id, ok)
	}
	if _, ok := st.LastMessage(Peer{ID: badID}.Key()); ok {
		t.Error("failed channel must not be recorded")
	}
	data, err := os.ReadFile(st.Paths().LastMessages)
	if err != nil || !strings.Contains(string(data), "21") {
		t.Errorf("last messages file = %q, %v", data, err)
	}
}

func TestRunWithBackfillDisabled(t *testing.T) {
	off := false
	m, fc, st := newTestMonitorWith(t, func(cfg *config.MonitorConfig) {
		cfg.Keywords = []string{"акция"}
		cfg.Backfill = &off
	})
	st.SetLastRun(time.Unix(1700000000, 0))
	if err := st.SaveLastRun(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(fc.historySnapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first poll cycle did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, q := range fc.historySnapshot() {
		if !q.Since.IsZero() {
			t.Errorf("unexpected since-bounded fetch %+v", q)
		}
	}
}

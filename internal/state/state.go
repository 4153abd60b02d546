// Package state keeps the monitor's bookkeeping: the last processed message
// per channel, the hashes of already forwarded messages, and the time of the
// last run. Each record lives in its own JSON file.
//
// A State is owned by a single goroutine (the monitor loop) and is not safe
// for concurrent use.
package state

import (
	"log/slog"
	"maps"
	"slices"
	"time"
)

// Paths locates the three persisted records.
type Paths struct {
	LastMessages string
	SentMessages string
	LastRun      string
}

type sentFile struct {
	Messages []string `json:"messages"`
}

type lastRunFile struct {
	LastRun int64 `json:"last_run"`
}

// State is the in-memory mirror of the persisted records.
type State struct {
	paths        Paths
	lastMessages map[string]int
	sent         map[string]struct{}
	lastRun      int64
}

// New returns an empty State backed by the given files. Call Load to read them.
func New(paths Paths) *State {
	return &State{
		paths:        paths,
		lastMessages: make(map[string]int),
		sent:         make(map[string]struct{}),
	}
}

// Paths returns the files this State reads and writes.
func (s *State) Paths() Paths { return s.paths }

// Load reads all three records. A missing or unreadable file is treated as
// "no prior state" and leaves the defaults in place.
func (s *State) Load() {
	lastMessages := make(map[string]int)
	if _, err := readJSON(s.paths.LastMessages, &lastMessages); err != nil {
		slog.Warn("last messages unreadable, starting empty", "path", s.paths.LastMessages, "error", err)
		lastMessages = nil
	}
	if lastMessages == nil {
		lastMessages = make(map[string]int)
	}
	s.lastMessages = lastMessages

	var sf sentFile
	if _, err := readJSON(s.paths.SentMessages, &sf); err != nil {
		slog.Warn("sent messages unreadable, starting empty", "path", s.paths.SentMessages, "error", err)
		sf = sentFile{}
	}
	s.sent = make(map[string]struct{}, len(sf.Messages))
	for _, h := range sf.Messages {
		s.sent[h] = struct{}{}
	}

	var lr lastRunFile
	if _, err := readJSON(s.paths.LastRun, &lr); err != nil {
		slog.Warn("last run unreadable, treating as first run", "path", s.paths.LastRun, "error", err)
		lr = lastRunFile{}
	}
	s.lastRun = lr.LastRun

	slog.Debug("state loaded",
		"channels", len(s.lastMessages),
		"sent", len(s.sent),
		"last_run", s.lastRun,
	)
}

// LastMessage returns the last processed message ID for a chat key.
func (s *State) LastMessage(chat string) (int, bool) {
	id, ok := s.lastMessages[chat]
	return id, ok
}

// SetLastMessage records id as the last processed message of chat.
func (s *State) SetLastMessage(chat string, id int) {
	s.lastMessages[chat] = id
}

// LastMessages returns a copy of the chat -> message ID mapping.
func (s *State) LastMessages() map[string]int {
	return maps.Clone(s.lastMessages)
}

// IsSent reports whether hash was already forwarded.
func (s *State) IsSent(hash string) bool {
	_, ok := s.sent[hash]
	return ok
}

// MarkSent adds hash to the forwarded set.
func (s *State) MarkSent(hash string) {
	s.sent[hash] = struct{}{}
}

// SentCount returns the size of the forwarded set.
func (s *State) SentCount() int { return len(s.sent) }

// SentHashes returns the forwarded set in sorted order.
func (s *State) SentHashes() []string {
	return slices.Sorted(maps.Keys(s.sent))
}

// LastRun returns the last run time, or the zero time on a first run.
func (s *State) LastRun() time.Time {
	if s.lastRun == 0 {
		return time.Time{}
	}
	return time.Unix(s.lastRun, 0)
}

// SetLastRun stores t with second precision.
func (s *State) SetLastRun(t time.Time) {
	s.lastRun = t.Unix()
}

// ResetLastMessages clears the per-channel positions.
func (s *State) ResetLastMessages() { s.lastMessages = make(map[string]int) }

// ResetSentMessages clears the forwarded set.
func (s *State) ResetSentMessages() { s.sent = make(map[string]struct{}) }

// ResetLastRun returns the monitor to first-run behaviour.
func (s *State) ResetLastRun() { s.lastRun = 0 }

// SaveLastMessages persists the per-channel positions.
func (s *State) SaveLastMessages() error {
	return writeJSON(s.paths.LastMessages, s.lastMessages)
}

// SaveSentMessages persists the forwarded set.
func (s *State) SaveSentMessages() error {
	hashes := s.SentHashes()
	if hashes == nil {
		hashes = []string{}
	}
	return writeJSON(s.paths.SentMessages, sentFile{Messages: hashes})
}

// SaveLastRun persists the last run timestamp.
func (s *State) SaveLastRun() error {
	return writeJSON(s.paths.LastRun, lastRunFile{LastRun: s.lastRun})
}

// SaveAll persists every record, returning the first error.
func (s *State) SaveAll() error {
	if err := s.SaveLastMessages(); err != nil {
		return err
	}
	if err := s.SaveSentMessages(); err != nil {
		return err
	}
	return s.SaveLastRun()
}

package config

import (
	"time"
)

// TelegramConfig configures the Bot API connection and the local post journal.
type TelegramConfig struct {
	Token   string `json:"token"`
	Proxy   string `json:"proxy,omitempty"`   // http(s) proxy URL for Bot API calls
	Journal string `json:"journal,omitempty"` // SQLite file with observed chats and posts
}

// MonitorConfig controls what is watched and where matches go.
type MonitorConfig struct {
	Target       FlexibleString      `json:"target"`                  // destination chat: numeric ID, @handle, t.me URL or title
	Keywords     FlexibleStringSlice `json:"keywords"`                // lowercase keywords, whole-word match
	Channels     FlexibleStringSlice `json:"channels"`                // URL, @handle, numeric ID or exact title
	PollInterval int                 `json:"poll_interval,omitempty"` // seconds between safety-net sweeps (default 300)
	PollBatch    int                 `json:"poll_batch,omitempty"`    // recent posts fetched per channel per sweep (default 50)
	PollSchedule string              `json:"poll_schedule,omitempty"` // cron expression; overrides poll_interval when set
	Backfill     *bool               `json:"backfill,omitempty"`      // scan posts since the last run on startup (default true)
	ForwardRate  float64             `json:"forward_rate,omitempty"`  // forwards per second (default 1)
	ForwardBurst int                 `json:"forward_burst,omitempty"` // forward burst size (default 3)
}

// Interval returns the poll interval with the default applied.
func (m MonitorConfig) Interval() time.Duration {
	if m.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(m.PollInterval) * time.Second
}

// Batch returns the poll batch size with the default applied.
func (m MonitorConfig) Batch() int {
	if m.PollBatch <= 0 {
		return DefaultPollBatch
	}
	return m.PollBatch
}

// BackfillEnabled reports whether the startup scan runs (default true).
func (m MonitorConfig) BackfillEnabled() bool {
	return m.Backfill == nil || *m.Backfill
}

// Rate returns forwards per second and burst with defaults applied.
func (m MonitorConfig) Rate() (float64, int) {
	r, b := m.ForwardRate, m.ForwardBurst
	if r <= 0 {
		r = DefaultForwardRate
	}
	if b <= 0 {
		b = DefaultForwardBurst
	}
	return r, b
}

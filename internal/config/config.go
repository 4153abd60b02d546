package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON, so numeric chat
// IDs can be written without quotes.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// FlexibleString accepts both "str" and 123 in JSON.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleString(fmt.Sprintf("%.0f", n))
	return nil
}

// Config is the root configuration for tgwatch.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Monitor   MonitorConfig   `json:"monitor"`
	State     StateConfig     `json:"state"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	mu        sync.RWMutex
}

// StateConfig locates the JSON files holding monitor bookkeeping.
type StateConfig struct {
	LastMessagesFile string `json:"last_messages_file"`
	SentMessagesFile string `json:"sent_messages_file"`
	LastRunFile      string `json:"last_run_file"`
}

// TelemetryConfig configures OpenTelemetry export for traces and spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection, for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "tgwatch"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens)
}

// MetricsConfig exposes Prometheus metrics over HTTP when Listen is set.
type MetricsConfig struct {
	Listen string `json:"listen,omitempty"` // e.g. "127.0.0.1:9464"; empty = disabled
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Telegram = src.Telegram
	c.Monitor = src.Monitor
	c.State = src.State
	c.Telemetry = src.Telemetry
	c.Metrics = src.Metrics
}

// MonitorSnapshot returns a copy of the monitor section under the read lock.
func (c *Config) MonitorSnapshot() MonitorConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.Monitor
	m.Keywords = append(FlexibleStringSlice(nil), c.Monitor.Keywords...)
	m.Channels = append(FlexibleStringSlice(nil), c.Monitor.Channels...)
	return m
}

const (
	DefaultPollInterval = 300 * time.Second
	DefaultPollBatch    = 50
	DefaultForwardRate  = 1.0
	DefaultForwardBurst = 3
)

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Journal: "~/.tgwatch/journal.db",
		},
		Monitor: MonitorConfig{
			PollInterval: int(DefaultPollInterval.Seconds()),
			PollBatch:    DefaultPollBatch,
			ForwardRate:  DefaultForwardRate,
			ForwardBurst: DefaultForwardBurst,
		},
		State: StateConfig{
			LastMessagesFile: "last_messages.json",
			SentMessagesFile: "sent_messages.json",
			LastRunFile:      "last_run.json",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "tgwatch",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from a JSON (or JSON5) file, then overlays env vars.
// A missing file yields the defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile reads config from a JSON (or JSON5) file without env overrides, so
// the result can be saved back without copying environment values into it.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envList := func(key string, dst *FlexibleStringSlice) {
		if v := os.Getenv(key); v != "" {
			var out FlexibleStringSlice
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*dst = out
		}
	}
	envBool := func(key string) (bool, bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "true" || v == "1", true
	}

	envStr("TGWATCH_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("TGWATCH_TELEGRAM_PROXY", &c.Telegram.Proxy)
	envStr("TGWATCH_JOURNAL", &c.Telegram.Journal)

	if v := os.Getenv("TGWATCH_TARGET"); v != "" {
		c.Monitor.Target = FlexibleString(v)
	}
	envList("TGWATCH_KEYWORDS", &c.Monitor.Keywords)
	envList("TGWATCH_CHANNELS", &c.Monitor.Channels)
	envStr("TGWATCH_POLL_SCHEDULE", &c.Monitor.PollSchedule)
	if v := os.Getenv("TGWATCH_POLL_INTERVAL"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Monitor.PollInterval = sec
		}
	}
	if b, ok := envBool("TGWATCH_BACKFILL"); ok {
		c.Monitor.Backfill = &b
	}

	envStr("TGWATCH_LAST_MESSAGES_FILE", &c.State.LastMessagesFile)
	envStr("TGWATCH_SENT_MESSAGES_FILE", &c.State.SentMessagesFile)
	envStr("TGWATCH_LAST_RUN_FILE", &c.State.LastRunFile)

	// Telemetry
	envStr("TGWATCH_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("TGWATCH_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("TGWATCH_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if b, ok := envBool("TGWATCH_TELEMETRY_ENABLED"); ok {
		c.Telemetry.Enabled = b
	}
	if b, ok := envBool("TGWATCH_TELEMETRY_INSECURE"); ok {
		c.Telemetry.Insecure = b
	}

	envStr("TGWATCH_METRICS_LISTEN", &c.Metrics.Listen)
}

// Validate checks the fields the monitor cannot run without.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is not set (TGWATCH_TELEGRAM_TOKEN)"))
	}
	if strings.TrimSpace(string(c.Monitor.Target)) == "" {
		errs = append(errs, errors.New("monitor.target is not set"))
	}
	if len(c.Monitor.Channels) == 0 {
		errs = append(errs, errors.New("monitor.channels is empty"))
	}
	if len(c.Monitor.Keywords) == 0 {
		errs = append(errs, errors.New("monitor.keywords is empty"))
	}
	if c.Monitor.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("monitor.poll_interval must be positive, got %d", c.Monitor.PollInterval))
	}
	if c.Monitor.PollSchedule != "" && !gronx.IsValid(c.Monitor.PollSchedule) {
		errs = append(errs, fmt.Errorf("invalid monitor.poll_schedule cron expression: %s", c.Monitor.PollSchedule))
	}
	return errors.Join(errs...)
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// StripSecrets zeros out all secret fields in the config.
// Used before saving to disk to ensure the bot token never persists in config.json.
func (c *Config) StripSecrets() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Telegram.Token = ""
	c.Telemetry.Headers = nil
}

// JournalPath returns the expanded journal path.
func (c *Config) JournalPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Telegram.Journal)
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Trigger selects how invocations arrive.
	//
	// Modes:
	//   - "http": an external scheduler POSTs the window name to /trigger.
	//     Timing is trusted to the scheduler; only the probability gate runs.
	//   - "cron": this process schedules itself with the windows' cron specs
	//     and verifies time-of-day membership on every firing.
	Trigger TriggerConfig `json:"trigger"`

	Server ServerConfig `json:"server,omitempty"`

	// Windows is the static posting-window table, keyed by window name.
	Windows map[string]WindowConfig `json:"windows"`

	Eligibility EligibilityConfig `json:"eligibility,omitempty"`

	Content   ContentConfig   `json:"content"`
	Platforms PlatformsConfig `json:"platforms"`
	Publish   PublishConfig   `json:"publish,omitempty"`
	Notify    NotifyConfig    `json:"notify,omitempty"`

	// DisplayTimezone is used for human-readable timestamps in notifications
	// (IANA name, e.g. "Europe/Madrid"). Defaults to UTC.
	DisplayTimezone string `json:"display_timezone,omitempty"`
}

type LoggingConfig struct {
	// Level: trace, debug, info, warn, error. Default: info.
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type TriggerConfig struct {
	Mode      string          `json:"mode"`
	Signature SignatureConfig `json:"signature,omitempty"`
}

// SignatureConfig controls HMAC verification of trigger bodies.
//
// Bypass skips verification entirely; it exists for local development and
// must never be set in production.
type SignatureConfig struct {
	Header string `json:"header,omitempty"` // default: "X-Autopost-Signature"
	Key    string `json:"key,omitempty"`    // shared secret (do not log)
	Bypass bool   `json:"bypass,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr,omitempty"` // default: ":8080"
	// ReadHeaderTimeout is a Go duration string.
	ReadHeaderTimeout string `json:"read_header_timeout,omitempty"`
}

// WindowConfig describes one posting window.
//
// Either Cron or Start/End must be set:
//   - Cron: spec owned by whichever scheduler fires the trigger.
//   - Start/End ("HH:MM"): a time-of-day range in Timezone, inclusive on
//     both ends. A range never spans more than two clock hours.
type WindowConfig struct {
	Region      string   `json:"region,omitempty"`
	Cron        string   `json:"cron,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Timezone    string   `json:"timezone,omitempty"` // default: UTC
	Probability *float64 `json:"probability,omitempty"`
}

type EligibilityConfig struct {
	// Cooldown is a Go duration string; items posted more recently than this
	// are not selectable. Default: "720h" (30 days).
	Cooldown string `json:"cooldown,omitempty"`
	// DailyGuard suppresses a second post in the same window on the same day.
	// Only meaningful in cron mode; http mode trusts the external schedule.
	DailyGuard *bool `json:"daily_guard,omitempty"`
}

// ContentConfig controls the content source.
//
// Driver values:
//   - "file": JSON Lines document store
//   - "sqlite": SQLite database file
type ContentConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type PlatformsConfig struct {
	Twitter  TwitterConfig  `json:"twitter,omitempty"`
	LinkedIn LinkedInConfig `json:"linkedin,omitempty"`
}

type TwitterConfig struct {
	Enabled     bool   `json:"enabled"`
	BearerToken string `json:"bearer_token,omitempty"`
	BaseURL     string `json:"base_url,omitempty"` // default: "https://api.twitter.com"
	RatePerMin  int    `json:"rate_per_min,omitempty"`
}

type LinkedInConfig struct {
	Enabled     bool   `json:"enabled"`
	AccessToken string `json:"access_token,omitempty"`
	UserID      string `json:"user_id,omitempty"` // person URN id (author)
	BaseURL     string `json:"base_url,omitempty"`
	Version     string `json:"version,omitempty"` // LinkedIn-Version header
}

type PublishConfig struct {
	// Timeout bounds each platform call. Go duration string, default "30s".
	Timeout string `json:"timeout,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
}

// Validate checks the parts of the config that strict decoding cannot.
// Window-table semantics (overlap, spans) are validated by window.NewRegistry.
func (c *Config) Validate() error {
	switch strings.TrimSpace(c.Trigger.Mode) {
	case "http", "cron":
	case "":
		return errors.New("trigger.mode is required (http or cron)")
	default:
		return fmt.Errorf("trigger.mode: unknown mode %q", c.Trigger.Mode)
	}
	if len(c.Windows) == 0 {
		return errors.New("windows: at least one posting window is required")
	}
	for name, w := range c.Windows {
		if w.Probability != nil && (*w.Probability < 0 || *w.Probability > 1) {
			return fmt.Errorf("windows.%s: probability must be in [0,1]", name)
		}
	}
	if strings.TrimSpace(c.Content.Driver) == "" {
		return errors.New("content.driver is required")
	}
	return nil
}

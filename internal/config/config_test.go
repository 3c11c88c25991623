package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
logging:
  level: debug
trigger:
  mode: http
  signature:
    key: secret
windows:
  EU_MORNING:
    region: EU
    start: "07:45"
    end: "08:15"
    timezone: Europe/Madrid
  US_EVENING:
    cron: "0 23 * * *"
    probability: 0.5
eligibility:
  cooldown: 720h
content:
  driver: sqlite
  path: /var/lib/autopost/posts.db
platforms:
  twitter:
    enabled: true
    bearer_token: tok
  linkedin:
    enabled: false
notify:
  telegram:
    enabled: true
    token: bot-token
    chat_id: -100123
`

func TestLoadValidYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Trigger.Mode != "http" || cfg.Trigger.Signature.Key != "secret" {
		t.Fatalf("trigger = %+v", cfg.Trigger)
	}
	w, ok := cfg.Windows["EU_MORNING"]
	if !ok || w.Start != "07:45" || w.Timezone != "Europe/Madrid" {
		t.Fatalf("EU_MORNING = %+v", w)
	}
	us := cfg.Windows["US_EVENING"]
	if us.Probability == nil || *us.Probability != 0.5 {
		t.Fatalf("US_EVENING probability = %v, want 0.5", us.Probability)
	}
	if cfg.Notify.Telegram.ChatID != -100123 {
		t.Fatalf("chat_id = %d", cfg.Notify.Telegram.ChatID)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the loaded config")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, validYAML+"\nsurprise: true\n"))
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("err = %v, want unknown field rejection", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() Config {
		return Config{
			Trigger: TriggerConfig{Mode: "http"},
			Windows: map[string]WindowConfig{"W": {Cron: "0 9 * * *"}},
			Content: ContentConfig{Driver: "file", Path: "posts.jsonl"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing mode", func(c *Config) { c.Trigger.Mode = "" }, "trigger.mode is required"},
		{"bad mode", func(c *Config) { c.Trigger.Mode = "webhook" }, "unknown mode"},
		{"no windows", func(c *Config) { c.Windows = nil }, "at least one posting window"},
		{"probability too high", func(c *Config) {
			p := 1.5
			c.Windows["W"] = WindowConfig{Cron: "0 9 * * *", Probability: &p}
		}, "probability must be in [0,1]"},
		{"missing driver", func(c *Config) { c.Content.Driver = "" }, "content.driver is required"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("eligibility.cooldown", "720h")
	if err != nil || d.Hours() != 720 {
		t.Fatalf("d = %v, err = %v", d, err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("expected error for junk duration")
	}

	d, err = ParseDurationOrDefault("publish.timeout", "", 30*time.Second)
	if err != nil || d != 30*time.Second {
		t.Fatalf("default = %v, err = %v", d, err)
	}
}

package trigger

import (
	"testing"

	"github.com/robfig/cron/v3"

	"autopost/internal/config"
	"autopost/internal/window"
)

func TestSpecsDerivation(t *testing.T) {
	t.Parallel()
	reg, err := window.NewRegistry(map[string]config.WindowConfig{
		"EXPLICIT": {Cron: "15 9 * * *"},
		"RANGE":    {Start: "12:27", End: "12:57"},
		"MADRID":   {Start: "07:45", End: "08:15", Timezone: "Europe/Madrid"},
		"TZ_CRON":  {Cron: "0 23 * * *", Timezone: "America/Mexico_City"},
	})
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	got := Specs(reg)
	want := map[string]string{
		"EXPLICIT": "15 9 * * *",
		"RANGE":    "27 12 * * *",
		"MADRID":   "CRON_TZ=Europe/Madrid 45 7 * * *",
		"TZ_CRON":  "CRON_TZ=America/Mexico_City 0 23 * * *",
	}
	for name, spec := range want {
		if got[name] != spec {
			t.Errorf("spec for %s = %q, want %q", name, got[name], spec)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %d specs, want %d", len(got), len(want))
	}
}

func TestSpecsParseable(t *testing.T) {
	t.Parallel()
	reg, err := window.NewRegistry(map[string]config.WindowConfig{
		"RANGE":  {Start: "09:00", End: "09:30"},
		"MADRID": {Cron: "30 18 * * 1-5", Timezone: "Europe/Madrid"},
	})
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	// Every derived spec must be accepted by the scheduler's own parser.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range Specs(reg) {
		if _, err := parser.Parse(spec); err != nil {
			t.Errorf("spec for %s (%q) does not parse: %v", name, spec, err)
		}
	}
}

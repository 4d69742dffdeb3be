package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const competitionYAML = `
name: Nationals 2026
referees: 3
auto_start_clock: false
initial_warning: 90s
final_warning: 30s
platforms:
  - name: A
    master: true
    group: M81-A
  - name: B
    group: W64-A
    referees: 5
    auto_start_clock: true
groups:
  - name: M81-A
    lifters:
      - {first_name: Jane, last_name: Doe, team: USA, lot: 1, body_weight: 80.2, snatch: 120, clean_jerk: 150}
      - {first_name: John, last_name: Roe, team: CAN, lot: 2, body_weight: 79.8, snatch: 118, clean_jerk: 152}
  - name: W64-A
    lifters: []
`

func TestParseCompetition(t *testing.T) {
	c, err := ParseCompetition([]byte(competitionYAML))
	if err != nil {
		t.Fatalf("ParseCompetition: %v", err)
	}
	if c.OneMinute != time.Minute || c.TwoMinutes != 2*time.Minute {
		t.Fatalf("expected default allowances, got %v / %v", c.OneMinute, c.TwoMinutes)
	}

	a := c.SessionConfig(c.Platforms[0])
	if a.Platform != "A" || !a.Master || a.PanelSize != 3 || a.AutoStartClock {
		t.Fatalf("unexpected config for A: %+v", a)
	}
	if a.Clock.InitialWarning != 90*time.Second || a.Clock.FinalWarning != 30*time.Second {
		t.Fatalf("unexpected clock thresholds %+v", a.Clock)
	}

	b := c.SessionConfig(c.Platforms[1])
	if b.Master || b.PanelSize != 5 || !b.AutoStartClock {
		t.Fatalf("expected overrides for B, got %+v", b)
	}
}

func TestGroupHasStableIDs(t *testing.T) {
	c, err := ParseCompetition([]byte(competitionYAML))
	if err != nil {
		t.Fatalf("ParseCompetition: %v", err)
	}
	g1, err := c.Group("M81-A")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	g2, _ := c.Group("M81-A")

	if len(g1.Lifters) != 2 {
		t.Fatalf("expected 2 lifters, got %d", len(g1.Lifters))
	}
	if g1.Lifters[0].ID != g2.Lifters[0].ID || g1.Lifters[0].ID == g1.Lifters[1].ID {
		t.Fatalf("expected stable and distinct ids")
	}
	doe := g1.Lifters[0]
	if w, ok := doe.NextAttemptWeight(); !ok || w != 120 {
		t.Fatalf("expected snatch opener 120, got %d %v", w, ok)
	}
	if doe.Attempts[3].Declaration != 150 || doe.GroupName != "M81-A" {
		t.Fatalf("unexpected lifter %+v", doe)
	}

	if _, err := c.Group("nope"); err == nil {
		t.Fatalf("expected error for unknown group")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := ParseCompetition([]byte(`
initial_warning: 20s
final_warning: 30s
platforms:
  - name: A
    group: missing
  - name: A
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"final warning", "unknown group missing", "declared twice"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	if _, err := ParseCompetition([]byte("platforms: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "competition.yaml")
	if err := os.WriteFile(path, []byte(competitionYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("COMPETITION_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.NATSEnabled || cfg.DatabaseEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Database.Port != 6543 || !strings.Contains(cfg.Database.DSN(), ":6543/liftcontrol") {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	t.Setenv("COMPETITION_FILE", filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for a missing competition file")
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/liftcontrol/go/internal/config"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/rs/zerolog"
)

type fakeJournal struct {
	evts     []events.RawEvent
	err      error
	platform string
	limit    int
}

func (f *fakeJournal) Recent(_ context.Context, platform string, limit int) ([]events.RawEvent, error) {
	f.platform, f.limit = platform, limit
	return f.evts, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	comp, err := config.ParseCompetition([]byte(`
name: Test Open
platforms:
  - name: A
    master: true
    group: M81-A
  - name: B
groups:
  - name: M81-A
    lifters:
      - {first_name: Jane, last_name: Doe, team: USA, lot: 1, snatch: 100, clean_jerk: 120}
`))
	if err != nil {
		t.Fatalf("ParseCompetition: %v", err)
	}
	return &config.Config{
		Port:            "0",
		InstanceName:    "test",
		ShutdownTimeout: time.Second,
		Competition:     comp,
	}
}

func TestSetupServicesWithoutInfrastructure(t *testing.T) {
	cfg := testConfig(t)
	services, err := setupServices(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setupServices: %v", err)
	}
	defer services.Close()

	if got := services.Platforms.List(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("expected platforms [A B], got %v", got)
	}
	a, err := services.Platforms.Get("A")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cur := a.CurrentLifter()
	if cur == nil || cur.LastName != "Doe" {
		t.Fatalf("expected Doe to be current, got %+v", cur)
	}
	if services.Journal != nil || services.Lifters != nil {
		t.Fatalf("expected no storage when the database is disabled")
	}
}

func TestServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	services, err := setupServices(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setupServices: %v", err)
	}
	defer services.Close()

	server := setupServer(cfg, services)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/api/platforms")
	if err != nil {
		t.Fatalf("GET /api/platforms: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	var stats map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["service"] != "platform_gateway" || stats["replication"] != false {
		t.Fatalf("unexpected stats %v", stats)
	}

	resp, err = http.Get(ts.URL + "/api/journal?platform=A")
	if err != nil {
		t.Fatalf("GET /api/journal: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected journal to be unavailable without a database, got %d", resp.StatusCode)
	}
}

func TestJournalEndpoint(t *testing.T) {
	journal := &fakeJournal{evts: []events.RawEvent{{Platform: "A", Kind: events.KindClockTick, Payload: json.RawMessage(`{}`)}}}
	mux := http.NewServeMux()
	setupJournal(mux, journal)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal?platform=A&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []events.RawEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || journal.platform != "A" || journal.limit != 5 {
		t.Fatalf("unexpected result %+v (platform %q, limit %d)", got, journal.platform, journal.limit)
	}

	cases := []struct {
		target string
		status int
	}{
		{"/api/journal", http.StatusBadRequest},
		{"/api/journal?platform=A&limit=x", http.StatusBadRequest},
		{"/api/journal?platform=A&limit=0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.target, tc.status, rec.Code)
		}
	}

	journal.err = errors.New("db down")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal?platform=A", nil))
	if rec.Code != http.StatusInternalServerError || journal.limit != defaultJournalLimit {
		t.Fatalf("expected 500 with default limit, got %d (limit %d)", rec.Code, journal.limit)
	}
}

func TestConsumerName(t *testing.T) {
	if got := consumerName("host.local lab"); got != "liftcontrol-gateway-host-local-lab" {
		t.Fatalf("unexpected consumer name %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != zerolog.DebugLevel {
		t.Fatalf("expected debug level")
	}
	if parseLevel("loud") != zerolog.InfoLevel || parseLevel("") != zerolog.InfoLevel {
		t.Fatalf("expected info level fallback")
	}
}

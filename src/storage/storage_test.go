package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

func sessionEvents() []models.MSessionEvent {
	base := time.UnixMilli(1700000000000).UTC()
	return []models.MSessionEvent{
		{SubscriptionID: "a", Subscriber: "127.0.0.1:4000", Event: models.SessionSubscribed, Symbols: []models.Symbol{"AAPL", "MSFT"}, CreatedAt: base},
		{SubscriptionID: "a", Subscriber: "127.0.0.1:4000", Event: models.SessionReplaced, Reason: "re-subscribed", CreatedAt: base.Add(time.Second)},
		{SubscriptionID: "b", Subscriber: "127.0.0.1:4000", Event: models.SessionEvicted, Symbols: []models.Symbol{"TSLA"}, Reason: "keep-alive timeout", CreatedAt: base.Add(2 * time.Second)},
	}
}

func checkRecent(t *testing.T, got []models.MSessionEvent) {
	t.Helper()
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Event != models.SessionEvicted || got[1].Event != models.SessionReplaced {
		t.Errorf("not newest first: %s, %s", got[0].Event, got[1].Event)
	}
	if len(got[0].Symbols) != 1 || got[0].Symbols[0] != "TSLA" || got[0].Reason != "keep-alive timeout" {
		t.Errorf("unexpected event %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(time.UnixMilli(1700000002000)) {
		t.Errorf("created_at %v", got[0].CreatedAt)
	}
}

// -----------------------------------------------------------------------------

func TestSQLiteJournalPersistsAcrossReopen(t *testing.T) {
	cfg := &models.MConfig{Storage: models.MStorageConfig{Enabled: true, DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "journal.db")}}

	j := NewSQLiteJournal(cfg, logger.NewNop())
	if err := j.Initialize(); err != nil {
		t.Fatal(err)
	}
	for _, ev := range sessionEvents() {
		j.Record(ev)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	j.Record(sessionEvents()[0]) // after close: dropped, no panic

	reopened := NewSQLiteJournal(cfg, logger.NewNop())
	if err := reopened.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.RecentSessions(2)
	if err != nil {
		t.Fatal(err)
	}
	checkRecent(t, got)
}

func TestRecentSessionsBeforeInitialize(t *testing.T) {
	j := NewSQLiteJournal(&models.MConfig{}, logger.NewNop())
	if _, err := j.RecentSessions(10); err == nil {
		t.Fatal("expected error from uninitialized journal")
	}
}

func TestNewSessionJournalSelectsBackend(t *testing.T) {
	cfg := &models.MConfig{Name: "Quote Streamer"}

	cfg.Storage.DBType = "sqlite"
	if j, _ := NewSessionJournal(cfg, logger.NewNop()); j == nil {
		t.Fatal("sqlite backend missing")
	} else if _, ok := j.(*SQLiteJournal); !ok {
		t.Errorf("got %T", j)
	}

	cfg.Storage.DBType = "postgres"
	j, _ := NewSessionJournal(cfg, logger.NewNop())
	pg, ok := j.(*PostgresJournal)
	if !ok {
		t.Fatalf("got %T", j)
	}
	if pg.Schema != "quote_streamer" {
		t.Errorf("schema %q", pg.Schema)
	}

	cfg.Storage.DBType = "mysql"
	if _, err := NewSessionJournal(cfg, logger.NewNop()); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

// -----------------------------------------------------------------------------

func TestAsyncWriterFlushesEverythingOnClose(t *testing.T) {
	var (
		mu  sync.Mutex
		got int
	)
	w := newAsyncWriter(func(batch []models.MSessionEvent) error {
		mu.Lock()
		got += len(batch)
		mu.Unlock()
		return errors.New("ignored")
	}, logger.NewNop())

	for i := 0; i < 500; i++ {
		w.enqueue(models.MSessionEvent{Event: models.SessionStopped})
	}
	w.close()
	w.close()

	mu.Lock()
	defer mu.Unlock()
	if got != 500 {
		t.Errorf("flushed %d events, want 500", got)
	}
}

func TestSymbolColumnRoundTrip(t *testing.T) {
	in := []models.Symbol{"AAPL", "BRK.B"}
	out := splitSymbols(joinSymbols(in))
	if len(out) != 2 || out[1] != "BRK.B" {
		t.Errorf("got %v", out)
	}
	if splitSymbols("") != nil {
		t.Error("empty column should yield nil")
	}
}

// -----------------------------------------------------------------------------

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("QUOTES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUOTES_TEST_POSTGRES_DSN not set")
	}
	cfg := &models.MConfig{Name: "quote_streamer_test", Storage: models.MStorageConfig{Enabled: true, DBType: "postgres", DBConnectionString: dsn}}

	j := NewPostgresJournal(cfg, logger.NewNop())
	if err := j.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, err := j.DB.Exec(`TRUNCATE "quote_streamer_test"."subscriber_sessions"`); err != nil {
		t.Fatal(err)
	}
	for _, ev := range sessionEvents() {
		j.Record(ev)
	}
	j.writer.close()

	got, err := j.RecentSessions(2)
	if err != nil {
		t.Fatal(err)
	}
	checkRecent(t, got)
	j.Close()
}

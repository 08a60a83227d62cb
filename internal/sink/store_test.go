package sink

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fattits30-dev/error-tracker/internal/db"
	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

func TestStore_DeliverPersists(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	store := NewStore(database)
	alert := tracker.Alert{
		ID:          "a1",
		Fingerprint: "fp1",
		Kind:        "DatabaseError",
		Message:     "Connection timeout after <NUM>s",
		Component:   "api",
		Severity:    tracker.SeverityCritical,
		Count:       20,
		Timestamp:   time.Now().Truncate(time.Second),
	}
	if err := store.Deliver(alert); err != nil {
		t.Fatal(err)
	}

	got, err := database.RecentAlerts(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 stored alert, got %d", len(got))
	}
	if got[0].Fingerprint != alert.Fingerprint || got[0].Count != alert.Count {
		t.Fatalf("stored alert differs: %+v", got[0])
	}
}

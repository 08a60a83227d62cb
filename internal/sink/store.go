package sink

import (
	"fmt"

	"github.com/fattits30-dev/error-tracker/internal/db"
	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// Store persists fired alerts to the sqlite history so they survive group
// eviction and restarts.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Deliver(a tracker.Alert) error {
	if err := s.db.InsertAlert(a); err != nil {
		return fmt.Errorf("store alert: %w", err)
	}
	return nil
}

package db

import (
	"fmt"
	"time"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// InsertAlert records one fired alert.
func (db *DB) InsertAlert(a tracker.Alert) error {
	_, err := db.Exec(
		`INSERT INTO alerts (id, fingerprint, kind, message, component, severity, count, triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Fingerprint, a.Kind, a.Message, a.Component,
		a.Severity.String(), a.Count, a.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// RecentAlerts returns up to limit alerts, newest first.
func (db *DB) RecentAlerts(limit int) ([]tracker.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, fingerprint, kind, message, component, severity, count, triggered_at
		 FROM alerts ORDER BY triggered_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []tracker.Alert
	for rows.Next() {
		var a tracker.Alert
		var severity string
		var triggeredAt int64
		if err := rows.Scan(&a.ID, &a.Fingerprint, &a.Kind, &a.Message,
			&a.Component, &severity, &a.Count, &triggeredAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Severity = tracker.ParseSeverity(severity)
		a.Timestamp = time.Unix(triggeredAt, 0).UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// PruneBefore deletes alerts triggered before the cutoff and returns how
// many rows were removed.
func (db *DB) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM alerts WHERE triggered_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	return res.RowsAffected()
}

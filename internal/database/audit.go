package database

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry одна строка журнала действий
type AuditEntry struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	BookingID int64     `json:"booking_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) InsertAuditEntry(ctx context.Context, entry *AuditEntry) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO logs (actor, action, booking_id, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Actor, entry.Action, entry.BookingID, entry.Details, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

// GetAuditEntries возвращает последние записи журнала
func (db *DB) GetAuditEntries(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, actor, action, COALESCE(booking_id, 0), COALESCE(details, ''), created_at
		 FROM logs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.BookingID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

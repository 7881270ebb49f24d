package model

import (
	"database/sql"
)

// SyncJournalEntry records one completed synchronization: which purchase id
// was synced, which Pyrus task fed it, and the id B2B-Center assigned.
type SyncJournalEntry struct {
	ID            int64
	PurchaseID    string
	B2BPurchaseID string
	TaskID        int
	Outcome       string
	CreatedAt     string
}

// RecordSync inserts a journal entry. The insert is an OR IGNORE against the
// UNIQUE purchase_id constraint; inserted reports whether this call actually
// wrote the row or a concurrent run got there first.
func RecordSync(db *sql.DB, entry *SyncJournalEntry) (inserted bool, err error) {
	result, err := db.Exec(
		`INSERT OR IGNORE INTO sync_journal (purchase_id, b2b_purchase_id, task_id, outcome) VALUES (?, ?, ?, ?)`,
		entry.PurchaseID, entry.B2BPurchaseID, entry.TaskID, entry.Outcome,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// FindSyncByPurchaseID returns the journal entry for a purchase id, or
// (nil, nil) when the purchase has not been synced by this service.
func FindSyncByPurchaseID(db *sql.DB, purchaseID string) (*SyncJournalEntry, error) {
	var entry SyncJournalEntry
	err := db.QueryRow(
		`SELECT id, purchase_id, b2b_purchase_id, task_id, outcome, created_at FROM sync_journal WHERE purchase_id = ?`,
		purchaseID,
	).Scan(&entry.ID, &entry.PurchaseID, &entry.B2BPurchaseID, &entry.TaskID, &entry.Outcome, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

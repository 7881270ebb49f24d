package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/purchasesync/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	if err := EnsureSchema(DB); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// EnsureSchema creates the sync journal table if it is missing. The UNIQUE
// constraint on purchase_id is the durable idempotency backstop: two runs can
// never journal the same purchase twice.
func EnsureSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS sync_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		purchase_id TEXT NOT NULL UNIQUE,
		b2b_purchase_id TEXT NOT NULL,
		task_id INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(createTableStatement)
	return err
}

package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestLedger opens a write/read pool pair over a throwaway job ledger in
// t.TempDir(), applies the schema, and closes both pools on cleanup.
func OpenTestLedger(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	ledgerPath := filepath.Join(t.TempDir(), "ledger.sqlite")

	writeDB, readDB, err := OpenSQLitePair(ledgerPath, 4)
	if err != nil {
		t.Fatalf("open test ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("migrate test ledger: %v", err)
	}

	return writeDB, readDB
}

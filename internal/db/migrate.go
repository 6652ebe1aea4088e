package db

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// RunMigrations brings the job ledger schema up to date. It applies any
// embedded migrations not yet recorded in the goose version table.
func RunMigrations(db *sql.DB) error {
	goose.SetBaseFS(ledgerMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

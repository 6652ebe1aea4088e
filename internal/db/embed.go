package db

import "embed"

// ledgerMigrations holds the embedded schema migrations for the job ledger.
//
//go:embed migrations/*.sql
var ledgerMigrations embed.FS

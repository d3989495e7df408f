package store

import (
	"context"
	"fmt"
	"log/slog"

	"matchday-tickets/monitoring"

	"github.com/pocketbase/dbx"
)

// createTicketsTable carries the full current column set. Installations
// created by older releases are brought up to date by columnMigrations.
const createTicketsTable = `CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	ticket_number TEXT NOT NULL UNIQUE,
	seat TEXT,
	purchase_date TEXT NOT NULL,
	match_name TEXT NOT NULL,
	match_date TEXT NOT NULL,
	match_time TEXT NOT NULL,
	venue TEXT NOT NULL,
	ticket_type TEXT NOT NULL DEFAULT 'general',
	price REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'upcoming',
	added_to_calendar INTEGER NOT NULL DEFAULT 0,
	price_exact TEXT
)`

const createSettingsTable = `CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const createTicketsIndexes = `CREATE INDEX IF NOT EXISTS idx_tickets_user_purchase
	ON tickets (user_id, purchase_date DESC)`

// Column is one additive schema change.
type Column struct {
	Name    string
	Type    string
	Default string // SQL literal, empty for none
}

func (c Column) alterSQL() string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", ticketsTable, c.Name, c.Type)
	if c.Default != "" {
		stmt += " DEFAULT " + c.Default
	}
	return stmt
}

// columnMigrations lists columns added after the first release, oldest
// first. Entries are only ever appended; nothing is dropped or renamed.
var columnMigrations = []Column{
	{Name: "seat", Type: "TEXT"},
	{Name: "ticket_type", Type: "TEXT NOT NULL", Default: "'general'"},
	{Name: "price", Type: "REAL NOT NULL", Default: "0"},
	{Name: "status", Type: "TEXT NOT NULL", Default: "'upcoming'"},
	{Name: "added_to_calendar", Type: "INTEGER NOT NULL", Default: "0"},
	// price keeps REAL affinity for older readers; price_exact holds the
	// decimal string.
	{Name: "price_exact", Type: "TEXT"},
}

// Migrate creates the tickets table and applies every column migration
// unconditionally. A column that already exists is skipped; any other
// failure is returned.
func Migrate(ctx context.Context, db *dbx.DB, logger *slog.Logger) error {
	if _, err := db.NewQuery(createTicketsTable).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("creating tickets table: %w", err)
	}

	for _, col := range columnMigrations {
		_, err := db.NewQuery(col.alterSQL()).WithContext(ctx).Execute()
		switch {
		case err == nil:
			logger.Info("ticket schema column added", "column", col.Name)
			monitoring.TrackSchemaColumn(col.Name, "added")
		case isDuplicateColumn(err):
			monitoring.TrackSchemaColumn(col.Name, "exists")
		default:
			return fmt.Errorf("adding column %s: %w", col.Name, err)
		}
	}

	if _, err := db.NewQuery(createTicketsIndexes).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("creating tickets indexes: %w", err)
	}

	if _, err := db.NewQuery(createSettingsTable).WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("creating settings table: %w", err)
	}

	return nil
}

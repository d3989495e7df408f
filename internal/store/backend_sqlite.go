//go:build !(js && wasm)

package store

import (
	"errors"
	"net/url"
	"strings"

	"github.com/pocketbase/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const backendAvailable = true

var connectionPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(OFF)",
	"temp_store(MEMORY)",
}

func openDB(path string) (*dbx.DB, error) {
	params := url.Values{}
	for _, pragma := range connectionPragmas {
		params.Add("_pragma", pragma)
	}

	db, err := dbx.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if err := db.DB().Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// isDuplicateColumn reports the "column already exists" failure of
// ALTER TABLE ADD COLUMN. SQLite reports it as a generic SQLITE_ERROR,
// so the message is the only discriminator left after the code check.
func isDuplicateColumn(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_ERROR &&
		strings.Contains(sqliteErr.Error(), "duplicate column name")
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

//go:build js && wasm

package store

import (
	"errors"

	"github.com/pocketbase/dbx"
)

// No embedded SQL engine builds for js/wasm.
const backendAvailable = false

func openDB(path string) (*dbx.DB, error) {
	return nil, errors.New("no sqlite backend on this platform")
}

func isDuplicateColumn(err error) bool { return false }

func isUniqueViolation(err error) bool { return false }

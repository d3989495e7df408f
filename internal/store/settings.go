package store

import (
	"context"
	"fmt"
	"time"

	"matchday-tickets/internal/status"
	"matchday-tickets/monitoring"

	"github.com/pocketbase/dbx"
)

const settingsTable = "settings"

// EnsureSetting stores value under key unless the key is already set, and
// returns whichever value is stored. Concurrent callers all get the first
// value written.
func (s *Store) EnsureSetting(ctx context.Context, key, value string) (stored string, err error) {
	if s == nil {
		return "", status.ErrStoreUnavailable
	}
	defer func(start time.Time) { monitoring.TrackStoreOperation("ensure_setting", start, err) }(time.Now())

	_, err = s.db.NewQuery("INSERT OR IGNORE INTO " + settingsTable + " (key, value) VALUES ({:key}, {:value})").
		Bind(dbx.Params{"key": key, "value": value}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return "", fmt.Errorf("writing setting %s: %w", key, err)
	}

	err = s.db.Select("value").
		From(settingsTable).
		Where(dbx.HashExp{"key": key}).
		WithContext(ctx).
		Row(&stored)
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return stored, nil
}

// Package store persists purchased match tickets in an embedded SQLite
// database on the device.
//
// A nil *Store is a valid value: it stands for "no local persistence on
// this platform". Read methods on a nil store return empty results and
// write methods return status.ErrStoreUnavailable, so callers can treat
// ticket features as optionally absent.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"matchday-tickets/utils"

	"github.com/pocketbase/dbx"
	"golang.org/x/sync/singleflight"
)

const ticketsTable = "tickets"

// Config holds the parameters for opening the ticket store.
type Config struct {
	// Path is the SQLite database file. The parent directory must exist.
	Path string

	// Disabled forces the unavailable (nil) store, as on platforms
	// without an embedded database.
	Disabled bool

	// Location is the device time zone used to interpret match date and
	// time. Defaults to time.Local.
	Location *time.Location

	Clock  utils.Clock
	Logger *slog.Logger
}

type Store struct {
	db     *dbx.DB
	path   string
	loc    *time.Location
	clock  utils.Clock
	logger *slog.Logger
}

// Open opens the database, creates the tickets table if absent and applies
// the additive column migrations. It is idempotent and may run
// concurrently with another Open on the same file.
//
// When no backend exists, Open returns (nil, nil).
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Disabled || !backendAvailable {
		logger.Warn("ticket store unavailable, ticket features disabled")
		return nil, nil
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("ticket store: Path is required")
	}

	db, err := openDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: opening %s: %w", cfg.Path, err)
	}

	if err := Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: %w", err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	clock := cfg.Clock
	if clock == nil {
		clock = utils.RealClock()
	}

	logger.Info("ticket store opened", "path", cfg.Path)

	return &Store{
		db:     db,
		path:   cfg.Path,
		loc:    loc,
		clock:  clock,
		logger: logger,
	}, nil
}

var (
	sharedMu     sync.Mutex
	sharedStores = make(map[string]*Store)
	openGroup    singleflight.Group
)

// Shared returns the process-wide store for cfg.Path, opening it on first
// use. Concurrent first callers share a single Open.
func Shared(ctx context.Context, cfg Config) (*Store, error) {
	key := cfg.Path
	if cfg.Disabled {
		key = "disabled:" + key
	}

	sharedMu.Lock()
	s, ok := sharedStores[key]
	sharedMu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := openGroup.Do(key, func() (any, error) {
		s, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}

		sharedMu.Lock()
		sharedStores[key] = s
		sharedMu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Available reports whether the store has a persistence backend.
func (s *Store) Available() bool {
	return s != nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("ticket store close error", "path", s.path, "error", err)
		return fmt.Errorf("ticket store: closing %s: %w", s.path, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.db.DB().PingContext(ctx)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"matchday-tickets/internal/status"

	"github.com/google/uuid"
)

const (
	guestPrefix     = "guest_"
	guestSettingKey = "guest_id"
)

// Identity resolves who owns a purchase when checkout did not say.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// SettingsStore keeps device settings across restarts. *store.Store
// satisfies it, including when nil.
type SettingsStore interface {
	EnsureSetting(ctx context.Context, key, value string) (string, error)
}

// GuestIdentity hands out one guest id for every anonymous purchase on the
// device. With a SettingsStore the id is persisted, so a guest's tickets
// stay listed after a restart.
type GuestIdentity struct {
	mu       sync.Mutex
	id       string
	settings SettingsStore
}

// NewGuestIdentity keeps the guest id in memory only.
func NewGuestIdentity() *GuestIdentity {
	return &GuestIdentity{}
}

// NewPersistentGuestIdentity restores the guest id from settings, or
// generates and saves one on first use.
func NewPersistentGuestIdentity(settings SettingsStore) *GuestIdentity {
	return &GuestIdentity{settings: settings}
}

// NewGuestIdentityWithID pins the guest id.
func NewGuestIdentityWithID(id string) *GuestIdentity {
	return &GuestIdentity{id: id}
}

func (g *GuestIdentity) CurrentUserID(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.id != "" {
		return g.id, nil
	}

	candidate := guestPrefix + uuid.NewString()
	if g.settings == nil {
		g.id = candidate
		return g.id, nil
	}

	stored, err := g.settings.EnsureSetting(ctx, guestSettingKey, candidate)
	switch {
	case errors.Is(err, status.ErrStoreUnavailable):
		// Nowhere to persist; the id lasts as long as the process.
		g.id = candidate
	case err != nil:
		return "", fmt.Errorf("restoring guest id: %w", err)
	default:
		g.id = stored
	}
	return g.id, nil
}

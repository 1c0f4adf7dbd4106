// Package realmlist holds the shared read-mostly realm table advertised to
// authenticated clients, plus the registry of known client builds.
package realmlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/azerothgo/azerothgo/internal/model"
)

// Repository is the database surface the store refreshes from.
type Repository interface {
	GetRealms(ctx context.Context) ([]model.Realm, error)
}

// Store caches the realm table. Reads vastly outnumber updates; a RWMutex
// keeps list construction cheap.
type Store struct {
	mu     sync.RWMutex
	realms []model.Realm
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Refresh reloads the realm table from the repository.
func (s *Store) Refresh(ctx context.Context, repo Repository) error {
	realms, err := repo.GetRealms(ctx)
	if err != nil {
		return fmt.Errorf("refreshing realm list: %w", err)
	}
	s.mu.Lock()
	s.realms = realms
	s.mu.Unlock()
	return nil
}

// SetRealms replaces the realm table directly. Used by tests and static
// configuration.
func (s *Store) SetRealms(realms []model.Realm) {
	s.mu.Lock()
	s.realms = append([]model.Realm(nil), realms...)
	s.mu.Unlock()
}

// All returns a snapshot of the realm table.
func (s *Store) All() []model.Realm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Realm(nil), s.realms...)
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrUnknownType is returned when a token's type has no registered collection.
var ErrUnknownType = errors.New("unknown collection type")

// Backend persists the type→collection mapping across restarts.
type Backend interface {
	LoadAll(ctx context.Context) (map[string]string, error)
	Store(ctx context.Context, collectionType, collectionID string) error
}

// Registry maps an on-chain display type to the id of the collection that
// defines it. Mappings are only ever added, never removed or replaced.
type Registry struct {
	backend Backend

	mu    sync.RWMutex
	types map[string]string
}

// New creates an empty registry over backend. Call Load before use.
func New(backend Backend) *Registry {
	return &Registry{
		backend: backend,
		types:   make(map[string]string),
	}
}

// Load replaces the in-memory snapshot with the backend contents.
func (r *Registry) Load(ctx context.Context) error {
	all, err := r.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	r.mu.Lock()
	r.types = all
	if r.types == nil {
		r.types = make(map[string]string)
	}
	n := len(r.types)
	r.mu.Unlock()

	slog.Info("collection registry loaded", "types", n)
	return nil
}

// Register records collectionType → collectionID. The first registration of
// a type wins; later ones for the same type are ignored.
func (r *Registry) Register(ctx context.Context, collectionType, collectionID string) error {
	r.mu.RLock()
	existing, ok := r.types[collectionType]
	r.mu.RUnlock()
	if ok {
		if existing != collectionID {
			slog.Debug("collection type already registered",
				"type", collectionType,
				"registered", existing,
				"ignored", collectionID,
			)
		}
		return nil
	}

	if err := r.backend.Store(ctx, collectionType, collectionID); err != nil {
		return fmt.Errorf("register %s: %w", collectionType, err)
	}

	r.mu.Lock()
	if _, ok := r.types[collectionType]; !ok {
		r.types[collectionType] = collectionID
	}
	r.mu.Unlock()

	return nil
}

// Lookup returns the collection id registered for collectionType.
func (r *Registry) Lookup(collectionType string) (string, error) {
	r.mu.RLock()
	id, ok := r.types[collectionType]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, collectionType)
	}
	return id, nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

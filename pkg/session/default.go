package session

import (
	"context"
	"sync"
)

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// Init creates the process wide store, replacing and closing any earlier one.
func Init(ctx context.Context, provider IdentityProvider, opts ...Option) *Store {
	store := NewStore(ctx, provider, opts...)

	defaultMu.Lock()
	previous := defaultStore
	defaultStore = store
	defaultMu.Unlock()

	if previous != nil {
		previous.Close()
	}

	return store
}

// Default returns the store created by Init, or nil before Init is called.
func Default() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	return defaultStore
}

func Shutdown() {
	defaultMu.Lock()
	store := defaultStore
	defaultStore = nil
	defaultMu.Unlock()

	if store != nil {
		store.Close()
	}
}

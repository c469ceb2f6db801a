package storage

import "sync"

// Instance construction can perform network calls, so repeated requests for
// the same backend configuration reuse one instance. Entries live for the
// process lifetime; there is deliberately no eviction.
var (
	mu        sync.Mutex
	instances = make(map[Config]*AssetStore)
)

// Get returns the memoized AssetStore for cfg, building it on first use.
// Identical configurations always yield the identical instance.
func Get(cfg Config) (*AssetStore, error) {
	mu.Lock()
	defer mu.Unlock()

	if store, ok := instances[cfg]; ok {
		return store, nil
	}

	store, err := New(cfg)
	if err != nil {
		return nil, err
	}
	instances[cfg] = store
	return store, nil
}

// resetCache clears the memoized instances. Intended for use in tests.
func resetCache() {
	mu.Lock()
	defer mu.Unlock()
	instances = make(map[Config]*AssetStore)
}

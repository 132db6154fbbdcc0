// Package cache provides the key-value store behind the key manager's
// fingerprint and public-key lookups. The store holds derived data only:
// every entry is re-derivable from the engine, which remains the source
// of truth. Entries never expire; they are invalidated explicitly when
// the key manager deletes a key pair.
package cache

import "fmt"

// Store is a minimal hash-map store: named hashes holding string fields.
// Operations are assumed atomic per field, but there is no cross-field
// transaction; callers that need stronger consistency must provide it
// themselves.
type Store interface {

	// GetField reads one field from the named hash. The boolean reports
	// whether the field was present; an absent field is not an error.
	GetField(hash, field string) (string, bool, error)

	// SetField writes one field of the named hash, overwriting any
	// previous value.
	SetField(hash, field, value string) error

	// DeleteField removes one field from the named hash. Deleting an
	// absent field is not an error.
	DeleteField(hash, field string) error

	// Ping tests connectivity for remote backends.
	Ping() error

	// Close releases any resources the store holds.
	Close() error

	// GetType returns the backend type, e.g. "redis" or "memory".
	GetType() string
}

// StoreType represents the supported cache backends.
type StoreType string

const (
	// StoreTypeRedis uses a Redis server; hash names map to Redis hashes.
	StoreTypeRedis StoreType = "redis"

	// StoreTypeMemory keeps all entries in process memory. Intended for
	// tests and single-process deployments without a Redis server.
	StoreTypeMemory StoreType = "memory"
)

// StoreConfig selects and configures a cache backend.
type StoreConfig struct {
	// Type specifies the backend to be used.
	Type StoreType `json:"type"`

	// Config contains backend-specific settings. For StoreTypeRedis the
	// recognized keys are "addr", "password" and "db".
	Config map[string]interface{} `json:"config"`
}

// NewStore factory function to create cache backends
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeRedis:
		return NewRedisStoreFromConfig(config)

	case StoreTypeMemory:
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported cache store type: %s", config.Type)
	}
}

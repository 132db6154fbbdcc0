package securedrop

import (
	"github.com/usedetail/securedrop-detail/audit"
	"github.com/usedetail/securedrop-detail/cache"
)

// Options configures a KeyManager. GPGKeyDir and
// JournalistKeyFingerprint are fixed at construction and immutable
// afterwards. Passphrases are never part of the configuration: callers
// supply them per operation and the manager never stores them.
type Options struct {
	// GPGKeyDir is the filesystem directory holding the engine's key
	// storage. Required unless Engine is set.
	GPGKeyDir string `json:"gpg_key_dir"`

	// GPGBinary overrides the engine binary name. Empty means the
	// default (gpg2).
	GPGBinary string `json:"gpg_binary,omitempty"`

	// JournalistKeyFingerprint is the fixed fingerprint every submission
	// and reply is encrypted to. The corresponding public key must
	// already be imported into the engine keyring.
	JournalistKeyFingerprint string `json:"journalist_key_fingerprint"`

	// Cache selects and configures the fingerprint cache backend.
	// Ignored when Store is set.
	Cache cache.StoreConfig `json:"cache"`

	// Audit configures audit logging. Nil disables it.
	Audit *audit.Config `json:"audit,omitempty"`

	// Engine overrides the engine adapter. Used by tests and by callers
	// that construct the adapter themselves.
	Engine Engine `json:"-"`

	// Store overrides the cache store. Used by tests.
	Store cache.Store `json:"-"`
}

// Package securedrop manages per-source key pairs and mediates every
// encrypt and decrypt operation between a source identity and the fixed
// journalist identity. The actual cryptography lives in an external
// OpenPGP engine (see the gpg package); expensive engine lookups are
// cached in a key-value store (see the cache package).
package securedrop

import (
	"errors"
	"fmt"
	"io"

	"github.com/usedetail/securedrop-detail/audit"
	"github.com/usedetail/securedrop-detail/cache"
	"github.com/usedetail/securedrop-detail/gpg"
)

// Cache namespaces. The names are part of the deployed data format and
// must not change across releases.
const (
	fingerprintHash = "sd/crypto-util/fingerprints"
	publicKeyHash   = "sd/crypto-util/keys"
)

// Engine is the contract the key manager needs from the underlying
// asymmetric-cryptography engine. gpg.GPG is the production
// implementation.
type Engine interface {
	// GenerateKeyPair creates a key pair for identity protected by
	// passphrase and returns its fingerprint. Synchronous; may take
	// seconds.
	GenerateKeyPair(identity, passphrase string) (string, error)

	// DeleteKeyPair removes the secret key, public key and all subkeys
	// for fingerprint. Returns a KeyNotFoundError if absent.
	DeleteKeyPair(fingerprint string) error

	// FindKeyByIdentity linearly scans all engine-held keys for the one
	// whose user ID names identity. Expensive; the fingerprint cache
	// exists to avoid it.
	FindKeyByIdentity(identity string) (string, error)

	// ExportPublicKey returns the exported public key for fingerprint,
	// or a KeyNotFoundError.
	ExportPublicKey(fingerprint string) (string, error)

	// Encrypt encrypts plaintext for the listed recipient fingerprints,
	// trusting them unconditionally, and writes binary ciphertext to
	// ciphertextPath. Fingerprints must be in compact hex form.
	Encrypt(recipients []string, plaintext io.Reader, ciphertextPath string) error

	// Decrypt decrypts ciphertext using passphrase.
	Decrypt(ciphertext io.Reader, passphrase string) ([]byte, error)
}

// KeyManager is the key-lifecycle and encryption orchestration
// component. Construct once per process with NewKeyManager and share;
// all methods are synchronous and run on the caller's goroutine with no
// internal locking, so concurrent generation or deletion of the same
// identity can race (last cache write wins, the engine is the source of
// truth).
type KeyManager struct {
	engine                Engine
	store                 cache.Store
	journalistFingerprint string
	audit                 audit.Logger
}

// NewKeyManager builds the engine handles and cache store described by
// options and verifies the deployment: the journalist public key must
// already be imported into the engine keyring, otherwise construction
// fails with a ConfigError.
func NewKeyManager(options Options) (*KeyManager, error) {
	if options.JournalistKeyFingerprint == "" {
		return nil, &ConfigError{Reason: "journalist key fingerprint is required"}
	}

	engine := options.Engine
	if engine == nil {
		if options.GPGKeyDir == "" {
			return nil, &ConfigError{Reason: "engine key storage directory is required"}
		}
		var err error
		engine, err = gpg.New(options.GPGKeyDir, options.GPGBinary)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}

	store := options.Store
	if store == nil {
		var err error
		store, err = cache.NewStore(options.Cache)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}

	auditLogger, err := audit.NewLogger(options.Audit)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	m := &KeyManager{
		engine:                engine,
		store:                 store,
		journalistFingerprint: options.JournalistKeyFingerprint,
		audit:                 auditLogger,
	}

	if _, err := m.GetJournalistPublicKey(); err != nil {
		// The store and audit logger are already open; release them
		// before reporting the construction failure.
		_ = m.Close()
		var notFound *KeyNotFoundError
		if errors.As(err, &notFound) {
			return nil, &ConfigError{
				Reason: fmt.Sprintf(
					"the journalist public key with fingerprint %s has not been imported into the engine keyring",
					options.JournalistKeyFingerprint,
				),
			}
		}
		return nil, err
	}

	return m, nil
}

// JournalistKeyFingerprint returns the fixed journalist fingerprint the
// manager was constructed with.
func (m *KeyManager) JournalistKeyFingerprint() string {
	return m.journalistFingerprint
}

// Audit exposes the manager's audit logger, e.g. for queries.
func (m *KeyManager) Audit() audit.Logger {
	return m.audit
}

// CachePing tests connectivity to the cache store.
func (m *KeyManager) CachePing() error {
	return m.store.Ping()
}

// Close releases the cache store and audit logger. The engine needs no
// teardown: every invocation is a short-lived subprocess.
func (m *KeyManager) Close() error {
	storeErr := m.store.Close()
	auditErr := m.audit.Close()
	if storeErr != nil {
		return storeErr
	}
	return auditErr
}

func (m *KeyManager) logEvent(action string, err error, metadata map[string]interface{}) {
	if err != nil {
		metadata["error"] = err.Error()
	}
	// Audit failures never mask the operation's own outcome.
	_ = m.audit.Log(action, err == nil, metadata)
}

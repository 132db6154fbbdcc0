package securedrop

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/usedetail/securedrop-detail/cache"
	"github.com/usedetail/securedrop-detail/gpg"
)

const (
	testJournalistIdentity   = "journalist"
	testJournalistPassphrase = "journalist passphrase"
)

type fakeKey struct {
	identity    string
	passphrase  string
	fingerprint string
	public      string
}

// fakeEngine is a scriptable in-memory Engine. Ciphertexts are JSON
// envelopes recording the recipient set, so tests can assert on exactly
// what the engine was asked to do.
type fakeEngine struct {
	keys       map[string]*fakeKey // by compact fingerprint
	byIdentity map[string]string
	nextSerial int

	findCalls   int
	exportCalls int
	findErr     error

	lastRecipients []string
}

type fakeEnvelope struct {
	Recipients []string `json:"recipients"`
	Plaintext  []byte   `json:"plaintext"`
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		keys:       make(map[string]*fakeKey),
		byIdentity: make(map[string]string),
	}
}

func (e *fakeEngine) addKey(identity, passphrase string) string {
	e.nextSerial++
	fingerprint := fmt.Sprintf("%040X", e.nextSerial)
	e.keys[fingerprint] = &fakeKey{
		identity:    identity,
		passphrase:  passphrase,
		fingerprint: fingerprint,
		public:      fmt.Sprintf("-----BEGIN PGP PUBLIC KEY BLOCK-----\n%s\n-----END PGP PUBLIC KEY BLOCK-----\n", fingerprint),
	}
	e.byIdentity[identity] = fingerprint
	return fingerprint
}

// removeKey deletes a key behind the manager's back, simulating an
// out-of-band engine-side deletion.
func (e *fakeEngine) removeKey(fingerprint string) {
	if key, ok := e.keys[fingerprint]; ok {
		delete(e.byIdentity, key.identity)
		delete(e.keys, fingerprint)
	}
}

func (e *fakeEngine) GenerateKeyPair(identity, passphrase string) (string, error) {
	return e.addKey(identity, passphrase), nil
}

func (e *fakeEngine) DeleteKeyPair(fingerprint string) error {
	if _, ok := e.keys[fingerprint]; !ok {
		return &gpg.KeyNotFoundError{Fingerprint: fingerprint}
	}
	e.removeKey(fingerprint)
	return nil
}

func (e *fakeEngine) FindKeyByIdentity(identity string) (string, error) {
	if e.findErr != nil {
		return "", e.findErr
	}
	e.findCalls++
	if fingerprint, ok := e.byIdentity[identity]; ok {
		return fingerprint, nil
	}
	return "", &gpg.KeyNotFoundError{Identity: identity}
}

func (e *fakeEngine) ExportPublicKey(fingerprint string) (string, error) {
	e.exportCalls++
	// The real engine tolerates spaced fingerprints on lookups.
	key, ok := e.keys[strings.ReplaceAll(fingerprint, " ", "")]
	if !ok {
		return "", &gpg.KeyNotFoundError{Fingerprint: fingerprint}
	}
	return key.public, nil
}

func (e *fakeEngine) Encrypt(recipients []string, plaintext io.Reader, ciphertextPath string) error {
	e.lastRecipients = append([]string(nil), recipients...)
	for _, fingerprint := range recipients {
		// The real engine only accepts compact hex recipients.
		if strings.ContainsAny(fingerprint, " ") {
			return &gpg.EncryptError{Diagnostic: fmt.Sprintf("invalid recipient %q", fingerprint)}
		}
		if _, ok := e.keys[fingerprint]; !ok {
			return &gpg.EncryptError{Diagnostic: fmt.Sprintf("no public key for %s", fingerprint)}
		}
	}

	data, err := io.ReadAll(plaintext)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(fakeEnvelope{Recipients: recipients, Plaintext: data})
	if err != nil {
		return err
	}
	return os.WriteFile(ciphertextPath, envelope, 0600)
}

func (e *fakeEngine) Decrypt(ciphertext io.Reader, passphrase string) ([]byte, error) {
	data, err := io.ReadAll(ciphertext)
	if err != nil {
		return nil, err
	}
	var envelope fakeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &gpg.DecryptError{Diagnostic: "corrupt ciphertext"}
	}
	for _, fingerprint := range envelope.Recipients {
		if key, ok := e.keys[fingerprint]; ok && key.passphrase == passphrase {
			return envelope.Plaintext, nil
		}
	}
	return nil, &gpg.DecryptError{Diagnostic: "decryption failed: bad passphrase or missing secret key"}
}

// newTestManager builds a manager over a fake engine that already holds
// the journalist key, and an in-memory cache store.
func newTestManager(t *testing.T) (*KeyManager, *fakeEngine, *cache.MemoryStore) {
	t.Helper()

	engine := newFakeEngine()
	journalistFingerprint := engine.addKey(testJournalistIdentity, testJournalistPassphrase)
	store := cache.NewMemoryStore()

	manager, err := NewKeyManager(Options{
		JournalistKeyFingerprint: journalistFingerprint,
		Engine:                   engine,
		Store:                    store,
	})
	if err != nil {
		t.Fatalf("failed to construct test key manager: %v", err)
	}
	return manager, engine, store
}

func TestNewKeyManagerMissingJournalistKey(t *testing.T) {
	engine := newFakeEngine()

	_, err := NewKeyManager(Options{
		JournalistKeyFingerprint: "DEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF",
		Engine:                   engine,
		Store:                    cache.NewMemoryStore(),
	})
	if err == nil {
		t.Fatal("expected construction to fail when the journalist key is not imported")
	}

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	var notFound *KeyNotFoundError
	if errors.As(err, &notFound) {
		t.Fatalf("misconfiguration must not surface as KeyNotFoundError: %v", err)
	}
}

// closeTrackingStore wraps a Store and records whether Close was called.
type closeTrackingStore struct {
	cache.Store
	closed bool
}

func (s *closeTrackingStore) Close() error {
	s.closed = true
	return s.Store.Close()
}

func TestNewKeyManagerClosesStoreOnFailedCheck(t *testing.T) {
	store := &closeTrackingStore{Store: cache.NewMemoryStore()}

	_, err := NewKeyManager(Options{
		JournalistKeyFingerprint: "DEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF",
		Engine:                   newFakeEngine(),
		Store:                    store,
	})
	if err == nil {
		t.Fatal("expected construction to fail when the journalist key is not imported")
	}
	if !store.closed {
		t.Fatal("store was left open after failed construction")
	}
}

func TestNewKeyManagerRequiresJournalistFingerprint(t *testing.T) {
	_, err := NewKeyManager(Options{
		Engine: newFakeEngine(),
		Store:  cache.NewMemoryStore(),
	})
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewKeyManagerCachesJournalistKey(t *testing.T) {
	manager, engine, _ := newTestManager(t)

	// Construction already exported the journalist key once.
	if engine.exportCalls != 1 {
		t.Fatalf("expected 1 export during construction, got %d", engine.exportCalls)
	}

	first, err := manager.GetJournalistPublicKey()
	if err != nil {
		t.Fatalf("failed to get journalist public key: %v", err)
	}
	if engine.exportCalls != 1 {
		t.Fatalf("journalist key lookup was not served from cache: %d export calls", engine.exportCalls)
	}
	if first == "" {
		t.Fatal("journalist public key is empty")
	}
}

package securedrop

import (
	"errors"
	"testing"
)

func TestGenerateSourceKeyPairPopulatesCache(t *testing.T) {
	manager, engine, _ := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-one", "correct horse battery staple"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	// Fault-inject the expensive scan path: a cached lookup never hits it.
	engine.findErr = errors.New("engine scan disabled by test")

	fingerprint, err := manager.GetSourceKeyFingerprint("source-one")
	if err != nil {
		t.Fatalf("cached fingerprint lookup failed: %v", err)
	}
	if fingerprint == "" {
		t.Fatal("cached fingerprint is empty")
	}
	if engine.findCalls != 0 {
		t.Fatalf("expected no engine scans, got %d", engine.findCalls)
	}
}

func TestGetSourceKeyFingerprintFallsBackToEngineScan(t *testing.T) {
	manager, engine, _ := newTestManager(t)

	// Key exists in the engine but was never cached, e.g. after a cache
	// loss or a generation whose cache write failed.
	want := engine.addKey("source-two", "pw")

	got, err := manager.GetSourceKeyFingerprint("source-two")
	if err != nil {
		t.Fatalf("fallback lookup failed: %v", err)
	}
	if got != want {
		t.Fatalf("fingerprint mismatch: got %s, want %s", got, want)
	}
	if engine.findCalls != 1 {
		t.Fatalf("expected exactly one engine scan, got %d", engine.findCalls)
	}

	// The scan result was written back: a second lookup stays cached.
	if _, err := manager.GetSourceKeyFingerprint("source-two"); err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if engine.findCalls != 1 {
		t.Fatalf("second lookup hit the engine scan: %d calls", engine.findCalls)
	}
}

func TestGetSourceKeyFingerprintUnknownIdentity(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.GetSourceKeyFingerprint("never-registered")
	var notFound *KeyNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
}

func TestGetSourcePublicKeyIdempotent(t *testing.T) {
	manager, engine, _ := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-three", "pw"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	exportsBefore := engine.exportCalls
	first, err := manager.GetSourcePublicKey("source-three")
	if err != nil {
		t.Fatalf("first public key lookup failed: %v", err)
	}
	if engine.exportCalls != exportsBefore+1 {
		t.Fatalf("first lookup should hit the engine once, got %d extra calls", engine.exportCalls-exportsBefore)
	}

	second, err := manager.GetSourcePublicKey("source-three")
	if err != nil {
		t.Fatalf("second public key lookup failed: %v", err)
	}
	if engine.exportCalls != exportsBefore+1 {
		t.Fatalf("second lookup was not served from cache: %d extra engine calls", engine.exportCalls-exportsBefore)
	}
	if first != second {
		t.Fatal("public key lookups returned different bytes")
	}
}

func TestDeleteSourceKeyPairInvalidatesCache(t *testing.T) {
	manager, _, _ := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-four", "pw"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	// Populate the public key cache entry too.
	if _, err := manager.GetSourcePublicKey("source-four"); err != nil {
		t.Fatalf("failed to populate public key cache: %v", err)
	}

	if err := manager.DeleteSourceKeyPair("source-four"); err != nil {
		t.Fatalf("failed to delete key pair: %v", err)
	}

	var notFound *KeyNotFoundError
	if _, err := manager.GetSourceKeyFingerprint("source-four"); !errors.As(err, &notFound) {
		t.Fatalf("expected KeyNotFoundError for fingerprint after delete, got %v", err)
	}
	if _, err := manager.GetSourcePublicKey("source-four"); !errors.As(err, &notFound) {
		t.Fatalf("expected KeyNotFoundError for public key after delete, got %v", err)
	}
}

func TestDeleteSourceKeyPairUnknownIdentity(t *testing.T) {
	manager, _, _ := newTestManager(t)

	err := manager.DeleteSourceKeyPair("never-registered")
	var notFound *KeyNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
}

func TestDeleteFailureLeavesCacheUntouched(t *testing.T) {
	manager, engine, store := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-five", "pw"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	fingerprint, err := manager.GetSourceKeyFingerprint("source-five")
	if err != nil {
		t.Fatalf("failed to resolve fingerprint: %v", err)
	}

	// Out-of-band deletion makes the manager's engine delete fail.
	engine.removeKey(fingerprint)

	var notFound *KeyNotFoundError
	if err := manager.DeleteSourceKeyPair("source-five"); !errors.As(err, &notFound) {
		t.Fatalf("expected engine delete failure, got %v", err)
	}

	// Fail-fast: no partial invalidation happened.
	if _, ok, _ := store.GetField(fingerprintHash, "source-five"); !ok {
		t.Fatal("fingerprint cache entry was invalidated despite the failed delete")
	}
}

func TestStaleCacheAfterOutOfBandDeletion(t *testing.T) {
	manager, engine, _ := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-six", "pw"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	fingerprint, err := manager.GetSourceKeyFingerprint("source-six")
	if err != nil {
		t.Fatalf("failed to resolve fingerprint: %v", err)
	}

	engine.removeKey(fingerprint)

	// The stale fingerprint flows into the recipient set, so the failure
	// is an engine-level unknown-recipient error, not KeyNotFoundError.
	err = manager.EncryptReply("source-six", "hello", t.TempDir()+"/reply.gpg")
	var encryptErr *EncryptError
	if !errors.As(err, &encryptErr) {
		t.Fatalf("expected EncryptError from stale cache entry, got %v", err)
	}
}

func TestRepairCacheDropsStaleEntries(t *testing.T) {
	manager, engine, store := newTestManager(t)

	if err := manager.GenerateSourceKeyPair("source-seven", "pw"); err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	fingerprint, _ := manager.GetSourceKeyFingerprint("source-seven")
	if _, err := manager.GetSourcePublicKey("source-seven"); err != nil {
		t.Fatalf("failed to populate public key cache: %v", err)
	}

	engine.removeKey(fingerprint)

	var notFound *KeyNotFoundError
	if err := manager.RepairCache("source-seven"); !errors.As(err, &notFound) {
		t.Fatalf("expected KeyNotFoundError from repairing a deleted key, got %v", err)
	}

	// Both stale entries are gone; the empty cache is the repaired state.
	if _, ok, _ := store.GetField(fingerprintHash, "source-seven"); ok {
		t.Fatal("stale fingerprint entry survived the repair")
	}
	if _, ok, _ := store.GetField(publicKeyHash, fingerprint); ok {
		t.Fatal("stale public key entry survived the repair")
	}
}

func TestRepairCacheRecoversOrphanedKey(t *testing.T) {
	manager, engine, store := newTestManager(t)

	// Orphaned key: committed in the engine, absent from the cache.
	want := engine.addKey("source-eight", "pw")

	if err := manager.RepairCache("source-eight"); err != nil {
		t.Fatalf("repair failed: %v", err)
	}

	got, ok, err := store.GetField(fingerprintHash, "source-eight")
	if err != nil || !ok {
		t.Fatalf("fingerprint was not restored to the cache (ok=%v, err=%v)", ok, err)
	}
	if got != want {
		t.Fatalf("repaired fingerprint mismatch: got %s, want %s", got, want)
	}
}

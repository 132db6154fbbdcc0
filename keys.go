package securedrop

import "github.com/usedetail/securedrop-detail/audit"

// GenerateSourceKeyPair creates a key pair for identity in the engine and
// records its fingerprint in the cache for fast lookups.
//
// Generation commits in the engine before the cache write happens; if the
// cache write then fails, the key exists but is reachable only via the
// slow engine scan until the next successful lookup or RepairCache call.
// There is no rollback.
func (m *KeyManager) GenerateSourceKeyPair(identity, passphrase string) error {
	fingerprint, err := m.engine.GenerateKeyPair(identity, passphrase)
	m.logEvent(audit.ActionKeyGenerate, err, map[string]interface{}{
		"identity":    identity,
		"fingerprint": fingerprint,
	})
	if err != nil {
		return err
	}
	return m.store.SetField(fingerprintHash, identity, fingerprint)
}

// DeleteSourceKeyPair removes identity's key pair from the engine and
// invalidates both cache entries. If the engine delete fails the cache is
// left untouched, so the entries still point at a real key.
func (m *KeyManager) DeleteSourceKeyPair(identity string) error {
	fingerprint, err := m.GetSourceKeyFingerprint(identity)
	if err != nil {
		return err
	}

	err = m.engine.DeleteKeyPair(fingerprint)
	m.logEvent(audit.ActionKeyDelete, err, map[string]interface{}{
		"identity":    identity,
		"fingerprint": fingerprint,
	})
	if err != nil {
		return err
	}

	if err := m.store.DeleteField(publicKeyHash, fingerprint); err != nil {
		return err
	}
	return m.store.DeleteField(fingerprintHash, identity)
}

// GetSourceKeyFingerprint resolves identity to its key fingerprint,
// consulting the cache first and falling back to the engine's linear
// scan, whose result is written back to the cache.
func (m *KeyManager) GetSourceKeyFingerprint(identity string) (string, error) {
	fingerprint, ok, err := m.store.GetField(fingerprintHash, identity)
	if err != nil {
		return "", err
	}
	if ok {
		return fingerprint, nil
	}

	fingerprint, err = m.engine.FindKeyByIdentity(identity)
	if err != nil {
		return "", err
	}
	if err := m.store.SetField(fingerprintHash, identity, fingerprint); err != nil {
		return "", err
	}
	return fingerprint, nil
}

// GetJournalistPublicKey returns the journalist's exported public key.
func (m *KeyManager) GetJournalistPublicKey() (string, error) {
	return m.getPublicKey(m.journalistFingerprint)
}

// GetSourcePublicKey returns identity's exported public key.
func (m *KeyManager) GetSourcePublicKey(identity string) (string, error) {
	fingerprint, err := m.GetSourceKeyFingerprint(identity)
	if err != nil {
		return "", err
	}
	return m.getPublicKey(fingerprint)
}

// getPublicKey is the cache-then-engine-then-write-back read path for
// exported public keys.
func (m *KeyManager) getPublicKey(fingerprint string) (string, error) {
	publicKey, ok, err := m.store.GetField(publicKeyHash, fingerprint)
	if err != nil {
		return "", err
	}
	if ok {
		return publicKey, nil
	}

	publicKey, err = m.engine.ExportPublicKey(fingerprint)
	if err != nil {
		return "", err
	}
	if err := m.store.SetField(publicKeyHash, fingerprint, publicKey); err != nil {
		return "", err
	}
	return publicKey, nil
}

// RepairCache drops both cache entries for identity and re-resolves the
// fingerprint from the engine. It is the recovery path for the two known
// divergence modes: a generation whose cache write failed, and an
// out-of-band engine-side deletion that left a stale entry behind. In the
// latter case the re-resolve fails with a KeyNotFoundError and the cache
// stays empty, which is the repaired state.
func (m *KeyManager) RepairCache(identity string) error {
	fingerprint, ok, err := m.store.GetField(fingerprintHash, identity)
	if err != nil {
		return err
	}
	if ok {
		if err := m.store.DeleteField(publicKeyHash, fingerprint); err != nil {
			return err
		}
		if err := m.store.DeleteField(fingerprintHash, identity); err != nil {
			return err
		}
	}

	_, err = m.GetSourceKeyFingerprint(identity)
	m.logEvent(audit.ActionCacheRepair, err, map[string]interface{}{
		"identity": identity,
	})
	return err
}

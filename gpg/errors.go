package gpg

import "fmt"

// KeyNotFoundError is returned when the engine keyring holds no key for
// the requested fingerprint or identity.
type KeyNotFoundError struct {
	Identity    string
	Fingerprint string
}

func (e *KeyNotFoundError) Error() string {
	switch {
	case e.Identity != "":
		return fmt.Sprintf("no key pair found for identity %q", e.Identity)
	case e.Fingerprint != "":
		return fmt.Sprintf("no key found for fingerprint %s", e.Fingerprint)
	default:
		return "key not found"
	}
}

// EncryptError is returned when the engine refuses or fails to encrypt,
// e.g. on an unknown recipient. Diagnostic carries the engine's stderr
// output verbatim so callers can decide on their own retry policy.
type EncryptError struct {
	Diagnostic string
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("engine failed to encrypt: %s", e.Diagnostic)
}

// DecryptError is returned when the engine refuses or fails to decrypt,
// e.g. on a wrong passphrase or corrupt ciphertext.
type DecryptError struct {
	Diagnostic string
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("engine failed to decrypt: %s", e.Diagnostic)
}

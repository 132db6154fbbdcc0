package securedrop

import (
	"errors"
	"fmt"

	"github.com/usedetail/securedrop-detail/gpg"
)

// The engine adapter owns the lookup and crypto failure types; they are
// aliased here so callers deal with a single taxonomy regardless of
// whether a failure originated in the cache path or the engine itself.
type (
	// KeyNotFoundError is returned when a key lookup fails both in the
	// cache and against the engine's keyring.
	KeyNotFoundError = gpg.KeyNotFoundError

	// EncryptError is returned when the engine refuses or fails to
	// encrypt. It carries the engine's diagnostic text verbatim.
	EncryptError = gpg.EncryptError

	// DecryptError is returned when the engine refuses or fails to
	// decrypt, e.g. on a wrong passphrase or corrupt ciphertext.
	DecryptError = gpg.DecryptError
)

// ErrReplyNotUTF8 is returned by DecryptReply when decryption succeeded
// but the recovered plaintext is not valid UTF-8. It is deliberately
// distinct from DecryptError: the engine did its job, the payload is
// simply not text.
var ErrReplyNotUTF8 = errors.New("decrypted reply is not valid UTF-8")

// ConfigError is returned only from NewKeyManager when the manager is
// constructed against a broken deployment, e.g. a journalist key that
// was never imported into the engine keyring. It is fatal: the caller
// cannot recover at runtime.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("key manager configuration error: %s", e.Reason)
}

package securedrop

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/usedetail/securedrop-detail/audit"
)

// EncryptSubmission encrypts a source's message for the journalist key
// only and writes binary ciphertext to ciphertextPath.
func (m *KeyManager) EncryptSubmission(message string, ciphertextPath string) error {
	return m.encrypt(
		audit.ActionEncryptSubmission,
		[]string{m.journalistFingerprint},
		strings.NewReader(message),
		ciphertextPath,
	)
}

// EncryptFile encrypts a source's uploaded file stream for the
// journalist key only and writes binary ciphertext to ciphertextPath.
func (m *KeyManager) EncryptFile(file io.Reader, ciphertextPath string) error {
	return m.encrypt(
		audit.ActionEncryptFile,
		[]string{m.journalistFingerprint},
		file,
		ciphertextPath,
	)
}

// EncryptReply encrypts a journalist's reply so that both the source and
// the journalist can read it: the recipient set is the source key
// followed by the journalist key.
func (m *KeyManager) EncryptReply(identity, reply string, ciphertextPath string) error {
	fingerprint, err := m.GetSourceKeyFingerprint(identity)
	if err != nil {
		return err
	}
	return m.encrypt(
		audit.ActionEncryptReply,
		[]string{fingerprint, m.journalistFingerprint},
		strings.NewReader(reply),
		ciphertextPath,
	)
}

// DecryptReply decrypts a reply ciphertext with the source's passphrase
// and returns the plaintext as a string. Decrypted bytes that are not
// valid UTF-8 fail with ErrReplyNotUTF8, which is distinct from the
// engine's own DecryptError.
func (m *KeyManager) DecryptReply(ciphertext []byte, passphrase string) (string, error) {
	plaintext, err := m.engine.Decrypt(bytes.NewReader(ciphertext), passphrase)
	m.logEvent(audit.ActionDecryptReply, err, map[string]interface{}{})
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", ErrReplyNotUTF8
	}
	return string(plaintext), nil
}

func (m *KeyManager) encrypt(action string, recipients []string, plaintext io.Reader, ciphertextPath string) error {
	// The engine emits fingerprints with spaces for readability but only
	// accepts them in compact hex form when naming recipients.
	sanitized := make([]string, len(recipients))
	for i, fingerprint := range recipients {
		sanitized[i] = sanitizeFingerprint(fingerprint)
	}

	err := m.engine.Encrypt(sanitized, plaintext, ciphertextPath)
	m.logEvent(action, err, map[string]interface{}{
		"recipients": strings.Join(sanitized, ","),
	})
	return err
}

// sanitizeFingerprint strips the formatting whitespace the engine prints
// in fingerprints, returning the compact hex form it requires on input.
func sanitizeFingerprint(fingerprint string) string {
	return strings.ReplaceAll(fingerprint, " ", "")
}

package gpg

import (
	"bytes"
	"io"
	"os"

	"github.com/awnumar/memguard"
)

// Decrypt-time statuses that are informational on some engine builds and
// must not be mistaken for failures. Focal-era GnuPG reports an
// undocumented DECRYPTION_COMPLIANCE_MODE status during decryption.
var toleratedDecryptStatuses = map[string]bool{
	"DECRYPTION_COMPLIANCE_MODE": true,
}

// Encrypt encrypts plaintext for every listed recipient fingerprint and
// writes binary (non-armored) ciphertext to ciphertextPath. Recipients
// are trusted unconditionally; the caller is responsible for recipient
// correctness. Fingerprints must be in compact hex form.
func (g *GPG) Encrypt(recipients []string, plaintext io.Reader, ciphertextPath string) error {
	_, statErr := os.Stat(ciphertextPath)
	existedBefore := statErr == nil

	args := []string{"--encrypt", "--always-trust", "--output", ciphertextPath}
	for _, fingerprint := range recipients {
		args = append(args, "--recipient", fingerprint)
	}

	inv, err := g.run(g.standardOpts, args, plaintext, nil, nil)
	if err != nil {
		return err
	}
	if !inv.ok() {
		// The engine can leave a zero-length output file behind on failure.
		// A file that already existed at the output path was never written
		// by this invocation (batch mode refuses to overwrite) and must
		// survive, so only clean up output this run created.
		if !existedBefore {
			os.Remove(ciphertextPath)
		}
		return &EncryptError{Diagnostic: inv.diagnostic()}
	}
	return nil
}

// Decrypt decrypts ciphertext with the given passphrase and returns the
// plaintext bytes. The passphrase reaches the engine over a dedicated
// file descriptor and is wiped from this process's memory afterwards.
func (g *GPG) Decrypt(ciphertext io.Reader, passphrase string) ([]byte, error) {
	buf := memguard.NewBufferFromBytes([]byte(passphrase))

	var plaintext bytes.Buffer
	inv, err := g.run(g.standardOpts, []string{"--decrypt"}, ciphertext, &plaintext, buf)
	if err != nil {
		return nil, err
	}

	for _, s := range inv.statuses {
		if toleratedDecryptStatuses[s.Keyword] {
			continue
		}
		if s.Keyword == "DECRYPTION_FAILED" {
			return nil, &DecryptError{Diagnostic: inv.diagnostic()}
		}
	}
	if !inv.ok() {
		return nil, &DecryptError{Diagnostic: inv.diagnostic()}
	}
	return plaintext.Bytes(), nil
}

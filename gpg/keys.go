package gpg

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
)

// GenerateKeyPair creates a new RSA-4096 key pair for identity, protected
// by passphrase, and returns its fingerprint. Generation is synchronous
// and can take several seconds while the engine gathers entropy.
func (g *GPG) GenerateKeyPair(identity, passphrase string) (string, error) {
	input := genKeyInput(identity, passphrase)
	defer memguard.WipeBytes(input)

	inv, err := g.run(g.standardOpts, []string{"--gen-key"}, bytes.NewReader(input), nil, nil)
	if err != nil {
		return "", err
	}
	// KEY_CREATED reports "P <fingerprint>" for a primary key.
	if s, ok := inv.status("KEY_CREATED"); ok {
		fields := strings.Fields(s.Args)
		if len(fields) >= 2 {
			return fields[len(fields)-1], nil
		}
	}
	return "", fmt.Errorf("gpg: key generation failed: %s", inv.diagnostic())
}

// genKeyInput renders the batch control input for --gen-key. The
// passphrase ends up in the returned buffer, so callers wipe it after use.
func genKeyInput(identity, passphrase string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Key-Type: %s\n", keyType)
	fmt.Fprintf(&b, "Key-Length: %d\n", keyLength)
	fmt.Fprintf(&b, "Name-Real: %s\n", sourceKeyName)
	fmt.Fprintf(&b, "Name-Email: %s\n", identity)
	fmt.Fprintf(&b, "Passphrase: %s\n", passphrase)
	fmt.Fprintf(&b, "Creation-Date: %s\n", keyCreationDate)
	fmt.Fprintf(&b, "Expire-Date: %s\n", keyExpireDate)
	b.WriteString("%commit\n")
	return []byte(b.String())
}

// deleteProblemReasons maps DELETE_PROBLEM status codes to readable
// diagnostics, mirroring the engine's documented reason codes.
var deleteProblemReasons = map[string]string{
	"1": "no such key",
	"2": "must delete secret key first",
	"3": "ambiguous specification",
	"4": "key is stored on a smartcard",
}

// Deletion-time statuses that recent engine versions emit informationally
// and that must not be treated as a failed parse.
var toleratedDeleteStatuses = map[string]bool{
	"KEY_CONSIDERED":    true,
	"PINENTRY_LAUNCHED": true,
}

// DeleteKeyPair removes the secret key, public key and all subkeys for
// the given fingerprint. It returns a KeyNotFoundError if the engine
// holds no such key.
func (g *GPG) DeleteKeyPair(fingerprint string) error {
	inv, err := g.run(g.deletionOpts, []string{"--delete-secret-and-public-key", fingerprint}, nil, nil, nil)
	if err != nil {
		return err
	}

	for _, s := range inv.statuses {
		if toleratedDeleteStatuses[s.Keyword] {
			continue
		}
		if s.Keyword == "DELETE_PROBLEM" {
			code := strings.TrimSpace(s.Args)
			if code == "1" {
				return &KeyNotFoundError{Fingerprint: fingerprint}
			}
			reason, known := deleteProblemReasons[code]
			if !known {
				reason = fmt.Sprintf("unknown error: %q", code)
			}
			return fmt.Errorf("gpg: failed to delete key %s: %s", fingerprint, reason)
		}
	}

	if !inv.ok() {
		if strings.Contains(inv.stderr, "not found") {
			return &KeyNotFoundError{Fingerprint: fingerprint}
		}
		return fmt.Errorf("gpg: failed to delete key %s: %s", fingerprint, inv.diagnostic())
	}
	return nil
}

// FindKeyByIdentity scans every key the engine holds and returns the
// fingerprint of the one whose user ID names the given identity. This is
// the expensive O(all keys) fallback path that the fingerprint cache
// exists to avoid.
func (g *GPG) FindKeyByIdentity(identity string) (string, error) {
	args := []string{"--list-keys", "--with-colons", "--fingerprint", "--fixed-list-mode"}
	var out strings.Builder
	inv, err := g.run(g.standardOpts, args, nil, &out, nil)
	if err != nil {
		return "", err
	}
	if !inv.ok() {
		return "", fmt.Errorf("gpg: key listing failed: %s", inv.diagnostic())
	}

	for _, key := range parseColonListing(out.String()) {
		for _, uid := range key.uids {
			if strings.Contains(uid, identity) && sourceUIDPattern.MatchString(uid) {
				return key.fingerprint, nil
			}
		}
	}
	return "", &KeyNotFoundError{Identity: identity}
}

// ExportPublicKey returns the ASCII-armored public key for the given
// fingerprint. The engine exits cleanly even when nothing matched, so an
// empty export is the miss signal.
func (g *GPG) ExportPublicKey(fingerprint string) (string, error) {
	var out strings.Builder
	inv, err := g.run(g.standardOpts, []string{"--export", "--armor", fingerprint}, nil, &out, nil)
	if err != nil {
		return "", err
	}
	if !inv.ok() {
		return "", fmt.Errorf("gpg: key export failed: %s", inv.diagnostic())
	}
	armored := out.String()
	if strings.TrimSpace(armored) == "" {
		return "", &KeyNotFoundError{Fingerprint: fingerprint}
	}
	return armored, nil
}

// listedKey is one primary key from a --with-colons listing.
type listedKey struct {
	fingerprint string
	uids        []string
}

// parseColonListing extracts primary-key fingerprints and user IDs from
// the engine's machine-readable key listing. Only the fpr record directly
// following a pub record is the primary fingerprint; fpr records after
// sub records belong to subkeys and are ignored.
func parseColonListing(listing string) []listedKey {
	var keys []listedKey
	var current *listedKey
	expectPrimaryFpr := false

	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Split(line, ":")
		switch fields[0] {
		case "pub":
			if current != nil {
				keys = append(keys, *current)
			}
			current = &listedKey{}
			expectPrimaryFpr = true
		case "fpr":
			if current != nil && expectPrimaryFpr && len(fields) > 9 {
				current.fingerprint = fields[9]
				expectPrimaryFpr = false
			}
		case "sub":
			expectPrimaryFpr = false
		case "uid":
			if current != nil && len(fields) > 9 {
				current.uids = append(current.uids, fields[9])
			}
		}
	}
	if current != nil {
		keys = append(keys, *current)
	}
	return keys
}

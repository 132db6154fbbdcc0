// Package gpg drives an external GnuPG binary as the module's
// asymmetric-cryptography engine. All key generation, encryption and
// decryption happens inside the engine subprocess; this package only
// translates typed requests into invocations and engine output into
// typed results.
//
// The engine is driven through two differently configured handles. The
// standard handle uses a direct trust model and, on GnuPG 2.1 or later,
// loopback pinentry so decryption passphrases can be supplied over a file
// descriptor instead of an interactive prompt. The deletion handle
// auto-confirms deletions and never enables loopback pinentry: secret-key
// deletion must not trigger a passphrase prompt. Key generation reuses
// the standard handle with batch input.
package gpg

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultBinary is the engine binary invoked when none is configured.
	DefaultBinary = "gpg2"

	keyType   = "RSA"
	keyLength = 4096

	// All source key pairs carry the same synthetic creation date so the
	// key metadata does not leak when a source first showed up.
	keyCreationDate = "20130514"

	// '0' tells batch key generation not to set an expiration date.
	keyExpireDate = "0"

	sourceKeyName = "Source Key"
)

// sourceUIDPattern matches the user IDs this module generates for source
// keys, plus the legacy "Autogenerated" form produced by older
// deployments of the original system.
var sourceUIDPattern = regexp.MustCompile(`^(Source|Autogenerated) Key <[-A-Za-z0-9+/=_]+>$`)

// GPG invokes a GnuPG binary against a fixed key storage directory.
// The zero value is not usable; construct with New.
type GPG struct {
	binary  string
	homedir string

	version versionInfo

	// Option sets for the two handle configurations. Both include the
	// homedir and batch/no-tty plumbing; see New for the differences.
	standardOpts []string
	deletionOpts []string
}

type versionInfo struct {
	raw   string
	major int
	minor int
}

// loopbackPinentry reports whether the engine supports
// --pinentry-mode loopback, which was added in GnuPG 2.1.
func (v versionInfo) loopbackPinentry() bool {
	return v.major > 2 || (v.major == 2 && v.minor >= 1)
}

// New probes the engine binary and builds the handle configurations for
// the given key storage directory. binary may be empty, in which case
// DefaultBinary is used.
func New(homedir, binary string) (*GPG, error) {
	if homedir == "" {
		return nil, fmt.Errorf("gpg: key storage directory is required")
	}
	if binary == "" {
		binary = DefaultBinary
	}

	out, err := exec.Command(binary, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("gpg: failed to probe engine binary %q: %w", binary, err)
	}
	version, err := parseVersion(string(out))
	if err != nil {
		return nil, fmt.Errorf("gpg: %w", err)
	}

	g := &GPG{
		binary:  binary,
		homedir: homedir,
		version: version,
	}

	common := []string{
		"--homedir", homedir,
		"--batch",
		"--no-tty",
		"--trust-model", "direct",
	}
	g.standardOpts = append(g.standardOpts, common...)
	if version.loopbackPinentry() {
		g.standardOpts = append(g.standardOpts, "--pinentry-mode", "loopback")
	}

	// Deletion always runs without loopback pinentry: deleting a secret
	// key must not route through the passphrase machinery.
	g.deletionOpts = append(g.deletionOpts, common...)
	g.deletionOpts = append(g.deletionOpts, "--yes")

	return g, nil
}

// Version returns the engine's version string as reported by the binary.
func (g *GPG) Version() string {
	return g.version.raw
}

// parseVersion extracts the engine version from --version output, whose
// first line looks like "gpg (GnuPG) 2.2.27".
func parseVersion(out string) (versionInfo, error) {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return versionInfo{}, fmt.Errorf("engine reported an empty version banner")
	}
	raw := fields[len(fields)-1]

	parts := strings.SplitN(raw, ".", 3)
	if len(parts) < 2 {
		return versionInfo{}, fmt.Errorf("unparseable engine version %q", raw)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return versionInfo{}, fmt.Errorf("unparseable engine version %q", raw)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return versionInfo{}, fmt.Errorf("unparseable engine version %q", raw)
	}
	return versionInfo{raw: raw, major: major, minor: minor}, nil
}

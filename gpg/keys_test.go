package gpg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = `tru::1:1700000000:0:3:1:5
pub:u:4096:1:A1B2C3D4E5F60718:1368489600:::u:::escaESCA::::::23::0:
fpr:::::::::4F30BBC2F5A4B1AA62A6D9D5A7A21EF8E1D2C3B4:
uid:u::::1368489600::DEADBEEF::Source Key <abc123-def456>::::::::::0:
sub:u:4096:1:0011223344556677:1368489600::::::esa::::::23:
fpr:::::::::FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF:
pub:u:4096:1:B2C3D4E5F6071829:1368489600:::u:::escaESCA::::::23::0:
fpr:::::::::1234567890ABCDEF1234567890ABCDEF12345678:
uid:u::::1368489600::CAFEBABE::Journalist Key <newsroom>::::::::::0:
`

func TestParseColonListing(t *testing.T) {
	keys := parseColonListing(sampleListing)
	require.Len(t, keys, 2)

	// The fpr record following a sub record belongs to the subkey and
	// must not overwrite the primary fingerprint.
	assert.Equal(t, "4F30BBC2F5A4B1AA62A6D9D5A7A21EF8E1D2C3B4", keys[0].fingerprint)
	assert.Equal(t, []string{"Source Key <abc123-def456>"}, keys[0].uids)

	assert.Equal(t, "1234567890ABCDEF1234567890ABCDEF12345678", keys[1].fingerprint)
	assert.Equal(t, []string{"Journalist Key <newsroom>"}, keys[1].uids)
}

func TestParseColonListingEmpty(t *testing.T) {
	assert.Empty(t, parseColonListing(""))
	assert.Empty(t, parseColonListing("tru::1:1700000000:0:3:1:5\n"))
}

func TestSourceUIDPattern(t *testing.T) {
	tests := []struct {
		uid  string
		want bool
	}{
		{"Source Key <abc123-def456>", true},
		{"Autogenerated Key <NWRLYF7GS3KKRARP25ELNGLAYU=>", true},
		{"Journalist Key <newsroom>", false},
		{"Source Key <spaces not allowed>", false},
		{"source key <abc>", false},
	}

	for _, tt := range tests {
		if got := sourceUIDPattern.MatchString(tt.uid); got != tt.want {
			t.Errorf("sourceUIDPattern(%q) = %v, want %v", tt.uid, got, tt.want)
		}
	}
}

func TestGenKeyInput(t *testing.T) {
	input := string(genKeyInput("abc123-def456", "the passphrase"))

	// The fixed key parameters are part of the deployed key format.
	assert.Contains(t, input, "Key-Type: RSA\n")
	assert.Contains(t, input, "Key-Length: 4096\n")
	assert.Contains(t, input, "Name-Real: Source Key\n")
	assert.Contains(t, input, "Name-Email: abc123-def456\n")
	assert.Contains(t, input, "Passphrase: the passphrase\n")

	// The synthetic creation date hides when a source actually signed up,
	// and '0' disables expiry.
	assert.Contains(t, input, "Creation-Date: 20130514\n")
	assert.Contains(t, input, "Expire-Date: 0\n")

	assert.True(t, strings.HasSuffix(input, "%commit\n"))
}

func TestDeleteProblemReasons(t *testing.T) {
	// Reason 1 is the miss case DeleteKeyPair maps to KeyNotFoundError.
	assert.Equal(t, "no such key", deleteProblemReasons["1"])
	assert.Equal(t, "must delete secret key first", deleteProblemReasons["2"])
}

package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintSep separates the tuple fields inside the hash input. The unit
// separator cannot appear in sane error text, so "a"+"bc" and "ab"+"c" can
// never collide.
const fingerprintSep = "\x1f"

// Fingerprint derives the stable identifier for a class of errors from the
// error kind, the normalized message, the source location and the
// originating component. Missing fields hash as empty strings so the tuple
// is always length four. The result is a 64-character hex SHA-256 digest,
// stable across restarts.
func Fingerprint(kind, normalizedMessage, location, component string) string {
	input := strings.Join([]string{kind, normalizedMessage, location, component}, fingerprintSep)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

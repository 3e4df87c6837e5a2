package inventory

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveID returns the hex SHA-256 of serial. The serial must be non-empty;
// submissions without one are rejected before an id is derived.
func DeriveID(serial string) string {
	sum := sha256.Sum256([]byte(serial))
	return hex.EncodeToString(sum[:])
}

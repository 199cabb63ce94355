package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash digests normalized full text. Whitespace runs are collapsed to
// single spaces before hashing so markup and formatting noise never change
// the hash; case is preserved.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

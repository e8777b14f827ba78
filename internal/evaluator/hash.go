package evaluator

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// bucket maps a (key, identifier) pair onto [0, 100). The first 7 hex digits
// of sha1(key + identifier) are read as an integer and reduced mod 100, which
// keeps assignments identical to other SDKs evaluating the same document.
func bucket(key, identifier string) int {
	sum := sha1.Sum([]byte(key + identifier))
	prefix := hex.EncodeToString(sum[:])[:7]

	n, _ := strconv.ParseInt(prefix, 16, 64)
	return int(n % 100)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

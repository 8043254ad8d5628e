package manifest

import "strings"

const sentinelPrefix = "[0 bytes file "

// SentinelDigest returns the placeholder written for zero-length files. Its
// width matches a hex digest of the given size, except when the digest is
// too short to hold the prefix.
func SentinelDigest(bits int) string {
	n := 2*bits/8 - len(sentinelPrefix) - 1
	if n < 0 {
		n = 0
	}
	return sentinelPrefix + strings.Repeat("#", n) + "]"
}

// IsSentinel reports whether digest is a zero-length placeholder.
func IsSentinel(digest string) bool {
	return strings.HasPrefix(digest, sentinelPrefix)
}

// Package hasher computes the content digests used for checksums,
// environment entry digests, and canonical project hashing.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the lowercase-hex SHA-256 digest of content, the
// bare form stored in metadata.checksum entries and pinned-usage
// checksums.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DigestIRI returns hex(SHA-256(normalisedIRI)), the environment
// entry digest of spec.md §3: digest = SHA-256(normalised IRI).
func DigestIRI(normalisedIRI string) string {
	return SHA256Hex([]byte(normalisedIRI))
}

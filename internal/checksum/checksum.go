// Package checksum fingerprints slot payloads so a process can recognise the
// bytes it wrote itself.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is the SHA-256 of a payload.
type Digest [sha256.Size]byte

// Of returns the digest of data.
func Of(data []byte) Digest {
	return sha256.Sum256(data)
}

// Matches reports whether data hashes to d.
func (d Digest) Matches(data []byte) bool {
	return Of(data) == d
}

// String returns the digest in hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// SnapshotHash fingerprints an input snapshot for reproducibility audits.
// Two runs with the same fingerprint, configuration, and seed must produce
// bit-identical output.
type SnapshotHash Hash

// HashColumns builds a snapshot fingerprint from column-ordered values.
// NaN is folded to a fixed bit pattern so "missing" hashes consistently.
func HashColumns(cols []string, values map[string][]float64) SnapshotHash {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, c := range cols {
		h.Write([]byte(c))
		for _, v := range values[c] {
			bits := math.Float64bits(v)
			if math.IsNaN(v) {
				bits = math.Float64bits(math.NaN())
			}
			binary.LittleEndian.PutUint64(buf, bits)
			h.Write(buf)
		}
	}
	return SnapshotHash(hex.EncodeToString(h.Sum(nil)))
}

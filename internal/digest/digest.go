// Package digest computes the content fingerprints used for cache-busting
// bundle filenames and the persisted stamp table.
package digest

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the number of digest bytes kept. The hex form is twice as long.
const Size = 16

// Sum returns the lowercase hex fingerprint of data: the first 128 bits of
// its BLAKE3 digest. Identical bytes always produce the identical string.
func Sum(data []byte) string {
	full := blake3.Sum256(data)
	return hex.EncodeToString(full[:Size])
}

// File returns the fingerprint of the file at path.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return Sum(data), nil
}

// Valid reports whether s has the shape of a fingerprint produced by Sum.
func Valid(s string) bool {
	if len(s) != Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

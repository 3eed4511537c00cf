// Package checksum computes content digests for source files.
package checksum

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Sum returns the hex-encoded 64-bit xxh3 digest of data.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

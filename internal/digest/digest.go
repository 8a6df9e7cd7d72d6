package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

const bufferSize = 1024 * 1024 // 1MB buffer

// Size is the digest length in bytes.
const Size = 16

// Digest is a 128-bit XXH3 content digest. The byte order is the
// canonical big-endian encoding of the 128-bit value, so the hex
// rendering is identical on every platform.
type Digest [Size]byte

// String returns the digest as 32 lowercase hex characters.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// EmptyHex is the well-known digest of the empty input.
const EmptyHex = "99aa06d3014798d86001c324468d497f"

// Sum streams r to completion and returns the content digest along
// with the number of bytes consumed. Memory use is bounded by the
// internal buffer regardless of input size.
func Sum(r io.Reader) (Digest, int64, error) {
	h := xxh3.New()
	buffer := make([]byte, bufferSize)

	var total int64
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			total += int64(n)
			// Hasher.Write never fails
			h.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, total, fmt.Errorf("read: %w", err)
		}
	}

	return Digest(h.Sum128().Bytes()), total, nil
}

// File opens and hashes the file at path, returning the digest and the
// number of bytes actually read. A read failure mid-stream fails the
// whole call; there is no partial digest.
func File(path string) (Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	d, n, err := Sum(f)
	if err != nil {
		return Digest{}, n, fmt.Errorf("hash %s: %w", path, err)
	}
	return d, n, nil
}

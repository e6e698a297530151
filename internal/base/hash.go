package base

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash is an opaque digest produced by a Hasher. Equality is byte equality;
// a zero-length Hash is the distinguished empty value.
type Hash []byte

// EmptyHash is the distinguished empty digest.
var EmptyHash = Hash(nil)

func (h Hash) IsEmpty() bool {
	return len(h) == 0
}

func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

// Clone returns a copy that does not alias h.
func (h Hash) Clone() Hash {
	if h == nil {
		return nil
	}
	c := make(Hash, len(h))
	copy(c, h)
	return c
}

// Hasher digests a sequence of byte chunks into a Hash. Implementations must
// be deterministic and stateless; the engine calls it from node operations
// and to form kv-checksums, never to compare or order keys.
type Hasher func(chunks ...[]byte) Hash

// XXHasher is the default Hasher, an xxhash64 over the concatenated chunks
// rendered as 8 big-endian bytes.
func XXHasher(chunks ...[]byte) Hash {
	d := xxhash.New()
	for _, c := range chunks {
		_, _ = d.Write(c)
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], d.Sum64())
	return sum[:]
}

// hashAll digests a state checksum followed by a list of child digests. This
// is the one checksum rule: leaves hash their kv-checksums, branches their
// child checksums, with the state checksum prepended when present.
func hashAll(hasher Hasher, state Hash, hashes []Hash) Hash {
	chunks := make([][]byte, 0, len(hashes)+1)
	if !state.IsEmpty() {
		chunks = append(chunks, state)
	}
	for _, h := range hashes {
		chunks = append(chunks, h)
	}
	return hasher(chunks...)
}

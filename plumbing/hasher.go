package plumbing

import (
	"crypto"
	"fmt"
	"hash"
	"strconv"
	"sync"

	formatcfg "github.com/awesome-os/universal-git-sub008/plumbing/format/config"
	githash "github.com/awesome-os/universal-git-sub008/plumbing/hash"
)

// ObjectHasher computes the canonical `"<type> <len>\0" || payload` hash
// for an object, selecting SHA-1 or SHA-256 per the repository's
// ObjectFormat. It is safe for concurrent use.
type ObjectHasher struct {
	mu     sync.Mutex
	h      hash.Hash
	format ObjectFormat
}

// NewObjectHasher returns a hasher bound to format f.
func NewObjectHasher(f ObjectFormat) (*ObjectHasher, error) {
	var h hash.Hash
	switch f {
	case SHA256:
		h = githash.New(crypto.SHA256)
	case SHA1, UnsetObjectFormat:
		h = githash.New(crypto.SHA1)
		f = SHA1
	default:
		return nil, fmt.Errorf("hasher: unsupported object format: %s", f)
	}
	return &ObjectHasher{h: h, format: f}, nil
}

// Compute hashes a full, in-memory object payload and returns its OID.
func (h *ObjectHasher) Compute(t ObjectType, payload []byte) (ObjectID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.h.Reset()
	writeHeader(h.h, t, int64(len(payload)))
	if _, err := h.h.Write(payload); err != nil {
		return ObjectID{}, fmt.Errorf("hasher: %w", err)
	}
	sum := h.h.Sum(nil)
	out, ok := FromBytes(sum)
	if !ok {
		return ObjectID{}, fmt.Errorf("hasher: unexpected digest size %d", len(sum))
	}
	return out, nil
}

// Hasher streams an object's header then payload into h's digest; call
// Sum when done. Used when the payload is not already buffered.
type Hasher struct {
	hash.Hash
	format ObjectFormat
}

// NewHasher primes a streaming Hasher with the object header for (f, t, size).
func NewHasher(f ObjectFormat, t ObjectType, size int64) Hasher {
	var h hash.Hash
	if f == SHA256 {
		h = githash.New(crypto.SHA256)
	} else {
		h = githash.New(crypto.SHA1)
		f = SHA1
	}
	hh := Hasher{Hash: h, format: f}
	writeHeader(hh.Hash, t, size)
	return hh
}

// Sum finalizes the digest into an ObjectID.
func (h Hasher) Sum() ObjectID {
	sum := h.Hash.Sum(nil)
	out, _ := FromBytes(sum)
	return out
}

// FromObjectFormat returns an ObjectHasher bound to the repository's
// configured object format, as recorded in extensions.objectformat.
// An unsupported format falls back to SHA1, mirroring ObjectID's own
// zero-value behavior.
func FromObjectFormat(f formatcfg.ObjectFormat) *ObjectHasher {
	var of ObjectFormat
	switch f {
	case formatcfg.SHA256:
		of = SHA256
	default:
		of = SHA1
	}
	h, err := NewObjectHasher(of)
	if err != nil {
		h, _ = NewObjectHasher(SHA1)
	}
	return h
}

func writeHeader(h hash.Hash, t ObjectType, size int64) {
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

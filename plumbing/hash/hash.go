// Package hash manages the hash implementations this module uses to
// address objects. The algorithm is selectable per repository (SHA-1 or
// SHA-256, §3 of the design) but every OID within one repository shares
// it.
package hash

import (
	"crypto"
	"errors"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

// Byte sizes of the two supported object formats.
const (
	SHA1Size      = 20
	SHA1HexSize   = SHA1Size * 2
	SHA256Size    = 32
	SHA256HexSize = SHA256Size * 2
)

// ErrUnsupportedHashFunction is returned by RegisterHash for any
// crypto.Hash other than SHA1/SHA256.
var ErrUnsupportedHashFunction = errors.New("hash: unsupported hash function")

var algos = map[crypto.Hash]func() hash.Hash{}

func init() { reset() }

// reset restores the default algorithm table; exported for tests that
// register overrides and need to undo side effects afterwards.
func reset() {
	algos[crypto.SHA1] = sha1cd.New
	algos[crypto.SHA256] = crypto.SHA256.New
}

// RegisterHash overrides the implementation used for a given algorithm.
// Used by tests and by embedders that need a non-default SHA-1 (e.g. a
// FIPS build).
func RegisterHash(h crypto.Hash, f func() hash.Hash) error {
	if f == nil {
		return fmt.Errorf("hash: cannot register nil constructor")
	}
	switch h {
	case crypto.SHA1, crypto.SHA256:
		algos[h] = f
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedHashFunction, h)
	}
}

// Hash is re-exported so callers need not import the stdlib hash package
// alongside this one.
type Hash interface {
	hash.Hash
}

// New returns a fresh Hash for the given crypto.Hash. It panics if the
// algorithm was never registered (SHA1/SHA256 always are).
func New(h crypto.Hash) Hash {
	f, ok := algos[h]
	if !ok {
		panic(fmt.Sprintf("hash: algorithm not registered: %v", h))
	}
	return f()
}

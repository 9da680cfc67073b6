package plumbing

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/awesome-os/universal-git-sub008/plumbing/hash"
)

// ObjectFormat names the hash algorithm a repository has committed to.
// It is fixed per repository (recorded in core.repositoryformatversion /
// extensions.objectformat) and never mixed: an operation that compares
// OIDs of different formats fails with ErrObjectFormatMismatch.
type ObjectFormat string

const (
	// UnsetObjectFormat is the zero value; treated as SHA1 for
	// backwards compatibility.
	UnsetObjectFormat ObjectFormat = ""
	// SHA1 is the original, still-default object format.
	SHA1 ObjectFormat = "sha1"
	// SHA256 is the newer, larger object format.
	SHA256 ObjectFormat = "sha256"
)

// Size returns the digest size, in bytes, for the format.
func (f ObjectFormat) Size() int {
	if f == SHA256 {
		return hash.SHA256Size
	}
	return hash.SHA1Size
}

var zero [hash.SHA256Size]byte

// ObjectID is a content-addressed identifier for any stored object. Its
// zero value is the all-zero SHA1 OID, matching the wire protocol's use
// of 40 zero hex digits to denote "no object".
type ObjectID struct {
	b      [hash.SHA256Size]byte
	format ObjectFormat
}

// Hash is an alias kept for readability at call sites that talk about
// "the hash of X" rather than "the object identified by X".
type Hash = ObjectID

// ZeroHash is the zero-value ObjectID (SHA1 width).
var ZeroHash ObjectID

// NewHash parses a hex OID, returning the zero hash on failure.
//
// Deprecated: prefer FromHex, which reports success explicitly.
func NewHash(s string) Hash {
	h, _ := FromHex(s)
	return h
}

// FromHex parses a hexadecimal OID. The object format is inferred from
// the string length (40 -> SHA1, 64 -> SHA256); anything else fails.
func FromHex(in string) (ObjectID, bool) {
	var id ObjectID
	switch len(in) {
	case hash.SHA1HexSize:
		id.format = SHA1
	case hash.SHA256HexSize:
		id.format = SHA256
	default:
		return id, false
	}
	b, err := hex.DecodeString(in)
	if err != nil {
		return ObjectID{}, false
	}
	copy(id.b[:], b)
	return id, true
}

// FromBytes builds an ObjectID from raw digest bytes, inferring the
// format from the slice length.
func FromBytes(in []byte) (ObjectID, bool) {
	var id ObjectID
	switch len(in) {
	case hash.SHA1Size:
		id.format = SHA1
	case hash.SHA256Size:
		id.format = SHA256
	default:
		return id, false
	}
	copy(id.b[:], in)
	return id, true
}

// IsHash reports whether s is a syntactically valid OID of either
// supported format.
func IsHash(s string) bool {
	switch len(s) {
	case hash.SHA1HexSize, hash.SHA256HexSize:
		_, err := hex.DecodeString(s)
		return err == nil
	default:
		return false
	}
}

// Format reports which hash algorithm produced this OID.
func (o ObjectID) Format() ObjectFormat {
	if o.format == UnsetObjectFormat {
		return SHA1
	}
	return o.format
}

// Size returns the digest length in bytes.
func (o ObjectID) Size() int { return o.Format().Size() }

// HexSize returns the digest length in hex characters, i.e. len(o.String()).
func (o ObjectID) HexSize() int { return o.Size() * 2 }

// Bytes returns the raw digest.
func (o ObjectID) Bytes() []byte {
	out := make([]byte, o.Size())
	copy(out, o.b[:o.Size()])
	return out
}

// String renders the OID as lowercase hex.
func (o ObjectID) String() string {
	return hex.EncodeToString(o.b[:o.Size()])
}

// IsZero reports whether every digest byte is zero.
func (o ObjectID) IsZero() bool {
	return bytes.Equal(o.b[:o.Size()], zero[:o.Size()])
}

// Compare orders o against a raw digest, byte-wise.
func (o ObjectID) Compare(b []byte) int {
	return bytes.Compare(o.b[:o.Size()], b)
}

// Equal reports whether two OIDs carry the same digest bytes. OIDs of
// differing formats are never equal, even if one is a truncation of the
// other's backing array.
func (o ObjectID) Equal(other ObjectID) bool {
	if o.Format() != other.Format() {
		return false
	}
	return bytes.Equal(o.b[:o.Size()], other.b[:o.Size()])
}

// HasPrefix reports whether the OID's hex digest starts with the given
// raw prefix bytes (used for short-OID expansion, §4.3).
func (o ObjectID) HasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(o.b[:o.Size()], prefix)
}

func (o ObjectID) GoString() string {
	return fmt.Sprintf("plumbing.ObjectID(%q)", o.String())
}

// HashesSort sorts a slice of OIDs in increasing byte order.
func HashesSort(a []Hash) {
	sort.Sort(HashSlice(a))
}

// HashSlice implements sort.Interface over []Hash.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return p[i].Compare(p[j].Bytes()) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

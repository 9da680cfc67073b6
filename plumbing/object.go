// Package plumbing implements the core types shared by every layer of the
// engine: object identity and typing, reference names, and the hashing
// primitives objects and packs are built on.
package plumbing

import (
	"errors"
	"io"
)

var (
	// ErrObjectNotFound is returned when an OID is absent from every
	// backing store consulted.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidType is returned when an ObjectType cannot be parsed or
	// does not match what was expected.
	ErrInvalidType = errors.New("invalid object type")
	// ErrObjectFormatMismatch is returned when an operation compares or
	// combines OIDs computed under different hash algorithms.
	ErrObjectFormatMismatch = errors.New("object format mismatch")
)

// EncodedObject is the generic, store-agnostic representation of any Git
// object: a type tag, a size, and a readable/writable byte stream for its
// payload.
type EncodedObject interface {
	Hash() Hash
	Type() ObjectType
	SetType(ObjectType)
	Size() int64
	SetSize(int64)
	Reader() (io.ReadCloser, error)
	Writer() (io.WriteCloser, error)
}

// DeltaObject is an EncodedObject still expressed as a delta against a
// base object, as produced while streaming a packfile.
type DeltaObject interface {
	EncodedObject
	// BaseHash is the OID of the delta's base object.
	BaseHash() Hash
	// ActualHash is the OID of the object once the delta is applied.
	ActualHash() Hash
	// ActualSize is the size of the object once the delta is applied.
	ActualSize() int64
}

// ObjectType tags the kind of a Git object. Integer values 0-7 mirror the
// type tag used on the wire and in pack headers.
type ObjectType int8

const (
	InvalidObject  ObjectType = 0
	CommitObject   ObjectType = 1
	TreeObject     ObjectType = 2
	BlobObject     ObjectType = 3
	TagObject      ObjectType = 4
	OFSDeltaObject ObjectType = 6
	REFDeltaObject ObjectType = 7

	// AnyObject matches any type; used by readers that don't care.
	AnyObject ObjectType = -127
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	case AnyObject:
		return "any"
	default:
		return "unknown"
	}
}

// Bytes is the byte-slice form of String, as written into an object's
// canonical header.
func (t ObjectType) Bytes() []byte { return []byte(t.String()) }

// Valid reports whether t is one of the four storable object types.
func (t ObjectType) Valid() bool {
	return t == CommitObject || t == TreeObject || t == BlobObject || t == TagObject
}

// IsDelta reports whether t represents an in-pack delta encoding.
func (t ObjectType) IsDelta() bool {
	return t == OFSDeltaObject || t == REFDeltaObject
}

// ParseObjectType parses the textual form used in object headers and
// pack-protocol messages.
func ParseObjectType(value string) (ObjectType, error) {
	switch value {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	case "ofs-delta":
		return OFSDeltaObject, nil
	case "ref-delta":
		return REFDeltaObject, nil
	default:
		return InvalidObject, ErrInvalidType
	}
}

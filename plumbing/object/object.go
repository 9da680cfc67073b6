// Package object implements the four high-level Git object kinds — blob,
// tree, commit and tag — decoded from the generic plumbing.EncodedObject
// representation that the storage layer hands back.
package object

import (
	"errors"
	"fmt"
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// ErrUnsupportedObject is returned by DecodeObject when asked to decode an
// plumbing.EncodedObject whose Type() is not one of the four storable
// object kinds.
var ErrUnsupportedObject = errors.New("unsupported object type")

// Object is the common interface satisfied by Commit, Tree, Blob and Tag.
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	Decode(plumbing.EncodedObject) error
	Encode(plumbing.EncodedObject) error
}

// GetObject decodes the object with the given hash, asserting it has type t
// (or t is plumbing.AnyObject), into the concrete Object it represents.
func GetObject(s storer.EncodedObjectStorer, h plumbing.Hash) (Object, error) {
	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeObject(s, o)
}

// DecodeObject decodes o, a generic plumbing.EncodedObject read from s, into
// its concrete Object representation, dispatching on o.Type().
func DecodeObject(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (Object, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		return DecodeCommit(s, o)
	case plumbing.TreeObject:
		return DecodeTree(s, o)
	case plumbing.BlobObject:
		return DecodeBlob(o)
	case plumbing.TagObject:
		return DecodeTag(s, o)
	default:
		return nil, plumbing.ErrInvalidType
	}
}

// GetCommit decodes the commit with the given hash.
func GetCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*Commit, error) {
	o, err := s.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeCommit(s, o)
}

// GetTree decodes the tree with the given hash.
func GetTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tree, error) {
	o, err := s.EncodedObject(plumbing.TreeObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTree(s, o)
}

// GetBlob decodes the blob with the given hash.
func GetBlob(s storer.EncodedObjectStorer, h plumbing.Hash) (*Blob, error) {
	o, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeBlob(o)
}

// GetTag decodes the annotated tag with the given hash.
func GetTag(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tag, error) {
	o, err := s.EncodedObject(plumbing.TagObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeTag(s, o)
}

// ObjectIter iterates over the decoded Objects produced by an underlying
// plumbing.EncodedObjectIter, decoding each one lazily as Next is called.
type ObjectIter struct {
	s    storer.EncodedObjectStorer
	iter storer.EncodedObjectIter
}

// NewObjectIter returns an ObjectIter that decodes each object from iter
// using s for any further lookups the decode requires (e.g. a tag's target).
func NewObjectIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *ObjectIter {
	return &ObjectIter{s, iter}
}

// Next decodes and returns the next object, or io.EOF when exhausted.
func (iter *ObjectIter) Next() (Object, error) {
	obj, err := iter.iter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeObject(iter.s, obj)
}

// ForEach calls cb once per object until it errors, returns storer.ErrStop,
// or the iterator is exhausted.
func (iter *ObjectIter) ForEach(cb func(Object) error) error {
	return iterateObjects(iter, cb)
}

// Close releases the underlying iterator.
func (iter *ObjectIter) Close() { iter.iter.Close() }

func iterateObjects(iter interface{ Next() (Object, error) }, cb func(Object) error) error {
	for {
		obj, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

func fmtDecodeError(kind string, err error) error {
	return fmt.Errorf("object: malformed %s: %w", kind, err)
}

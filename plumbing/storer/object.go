package storer

import (
	"errors"
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing"
)

// ErrStop is used to stop a ForEach function in an Iter.
var ErrStop = errors.New("stop iter")

// EncodedObjectStorer generic storage of objects.
type EncodedObjectStorer interface {
	// NewEncodedObject returns a new empty EncodedObject, the real type
	// of the object can be a custom implementation or the default one,
	// plumbing.MemoryObject.
	NewEncodedObject() plumbing.EncodedObject
	// SetEncodedObject saves an object into the storage, the object should
	// be create with the NewEncodedObject, method, and file if the type is
	// not supported.
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	// EncodedObject gets an object by hash with the given
	// plumbing.ObjectType. Implementors should return
	// (nil, plumbing.ErrObjectNotFound) if an object doesn't exist with
	// both the given hash and object type.
	//
	// Valid plumbing.ObjectType values are CommitObject, BlobObject, TagObject,
	// TreeObject and AnyObject. If plumbing.AnyObject is given, the object must
	// be looked up regardless of its type.
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	// IterEncodedObjects returns an iterator for all the objects in the
	// storage with the given plumbing.ObjectType. The iterator returned
	// is not thread-safe, it should be used in the same thread as the
	// one that called this method.
	IterEncodedObjects(plumbing.ObjectType) (EncodedObjectIter, error)
	// HasEncodedObject returns ErrObjNotFound if the object doesn't
	// exist.  If the object does exist, it returns nil.
	HasEncodedObject(plumbing.Hash) error
	// EncodedObjectSize returns the plaintext size of the encoded object.
	EncodedObjectSize(plumbing.Hash) (int64, error)
}

// RawObjectStorer is a lower-level API that allows directly writing
// encoded objects without first buffering the full payload.
type RawObjectStorer interface {
	// RawObjectWriter returns an object Writer for writing an object of
	// type t with the expected final size sz, computing the hash as it
	// streams.
	RawObjectWriter(t plumbing.ObjectType, sz int64) (io.WriteCloser, error)
}

// DeltaObjectStorer is implemented by storers that can return an object
// still packed as a delta, along with its base's hash, to avoid fully
// resolving it when the caller doesn't need the materialized content.
type DeltaObjectStorer interface {
	// DeltaObject returns the object with the given hash, that could
	// be a delta object, the diff between a base object and a target
	// object.
	DeltaObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
}

// Transaction is an in-progress write to an EncodedObjectStorer that is not
// observable by readers until Commit is called.
type Transaction interface {
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	Commit() error
	Rollback() error
}

// Transactioner is implemented by storers that support atomic multi-object
// writes, typically used while unpacking an entire packfile.
type Transactioner interface {
	// Begin starts a transaction.
	Begin() Transaction
}

// PackfileWriter is implemented by storers that can write a whole packfile
// in a streaming fashion, bypassing per-object writes entirely.
type PackfileWriter interface {
	// PackfileWriter returns a writer for writing a packfile, and a
	// function to be called when finished, which will apply the
	// appropriate steps to make the objects part of the object storage.
	PackfileWriter() (io.WriteCloser, error)
}

// AlternatesStorer is implemented by storers that can reference the object
// database of another repository (`objects/info/alternates`).
type AlternatesStorer interface {
	// AddAlternate adds a new alternate remote, pointing at the
	// repository whose path is given.
	AddAlternate(remote string) error
}

// EncodedObjectIter is a generic closable interface for iterating over
// objects.
type EncodedObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	ForEach(func(plumbing.EncodedObject) error) error
	Close()
}

// MultiEncodedObjectIter is an EncodedObjectIter that iterates over several
// iterators, in order.
type MultiEncodedObjectIter struct {
	iters []EncodedObjectIter
	pos   int
}

// NewMultiEncodedObjectIter returns an EncodedObjectIter that iterates over
// the given iterators, in order.
func NewMultiEncodedObjectIter(iters []EncodedObjectIter) EncodedObjectIter {
	return &MultiEncodedObjectIter{iters: iters}
}

func (it *MultiEncodedObjectIter) Next() (plumbing.EncodedObject, error) {
	if it.pos >= len(it.iters) {
		return nil, io.EOF
	}

	obj, err := it.iters[it.pos].Next()
	if err == io.EOF {
		it.pos++
		return it.Next()
	}

	return obj, err
}

func (it *MultiEncodedObjectIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachEncodedObject(it, cb)
}

func (it *MultiEncodedObjectIter) Close() {
	for _, i := range it.iters {
		i.Close()
	}
}

// EncodedObjectSliceIter implements EncodedObjectIter over a plain slice.
type EncodedObjectSliceIter struct {
	series []plumbing.EncodedObject
}

// NewEncodedObjectSliceIter returns an EncodedObjectIter that iterates over
// the given slice of objects.
func NewEncodedObjectSliceIter(series []plumbing.EncodedObject) EncodedObjectIter {
	return &EncodedObjectSliceIter{series: series}
}

func (iter *EncodedObjectSliceIter) Next() (plumbing.EncodedObject, error) {
	if len(iter.series) == 0 {
		return nil, io.EOF
	}

	obj := iter.series[0]
	iter.series = iter.series[1:]
	return obj, nil
}

func (iter *EncodedObjectSliceIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachEncodedObject(iter, cb)
}

func (iter *EncodedObjectSliceIter) Close() {
	iter.series = []plumbing.EncodedObject{}
}

// EncodedObjectLookupIter implements EncodedObjectIter, resolving object
// hashes one at a time against an EncodedObjectStorer as it is iterated,
// rather than loading them all up front.
type EncodedObjectLookupIter struct {
	storer EncodedObjectStorer
	t      plumbing.ObjectType
	series []plumbing.Hash
	pos    int
}

// NewEncodedObjectLookupIter returns an EncodedObjectIter that iterates
// over the given hashes, looking up each one in s as it is reached.
func NewEncodedObjectLookupIter(
	s EncodedObjectStorer, t plumbing.ObjectType, series []plumbing.Hash,
) EncodedObjectIter {
	return &EncodedObjectLookupIter{storer: s, t: t, series: series}
}

func (iter *EncodedObjectLookupIter) Next() (plumbing.EncodedObject, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj, err := iter.storer.EncodedObject(iter.t, iter.series[iter.pos])
	if err == nil {
		iter.pos++
	}
	return obj, err
}

func (iter *EncodedObjectLookupIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	return forEachEncodedObject(iter, cb)
}

func (iter *EncodedObjectLookupIter) Close() {
	iter.pos = len(iter.series)
}

func forEachEncodedObject(iter EncodedObjectIter, cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				break
			}
			return err
		}
	}

	return nil
}

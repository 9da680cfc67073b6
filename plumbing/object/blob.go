package object

import (
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// Blob is the content of a file: an opaque byte stream with no further
// structure (§3: the engine never interprets blob content).
type Blob struct {
	Hash plumbing.Hash
	Size int64

	obj plumbing.EncodedObject
}

// ID returns the blob's OID, satisfying Object.
func (b *Blob) ID() plumbing.Hash { return b.Hash }

// Type always returns plumbing.BlobObject, satisfying Object.
func (b *Blob) Type() plumbing.ObjectType { return plumbing.BlobObject }

// Decode reads b's fields from a generic encoded object. The payload itself
// is not copied; Reader opens a fresh stream from o each call.
func (b *Blob) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.BlobObject {
		return plumbing.ErrInvalidType
	}

	b.Hash = o.Hash()
	b.Size = o.Size()
	b.obj = o
	return nil
}

// Encode writes b's content into o, an empty EncodedObject the caller will
// then hand to a storer.
func (b *Blob) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.BlobObject)
	o.SetSize(b.Size)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := b.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(w, r)
	return err
}

// Reader returns a reader over the blob's content.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return b.obj.Reader()
}

// BlobIter iterates over a sequence of blobs, decoding each as it is
// reached.
type BlobIter struct {
	s    storer.EncodedObjectStorer
	iter storer.EncodedObjectIter
}

// NewBlobIter returns a BlobIter over the objects produced by iter.
func NewBlobIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *BlobIter {
	return &BlobIter{s, iter}
}

// Next decodes and returns the next blob, or io.EOF when exhausted.
func (iter *BlobIter) Next() (*Blob, error) {
	obj, err := iter.iter.Next()
	if err != nil {
		return nil, err
	}

	b := &Blob{}
	if err := b.Decode(obj); err != nil {
		return nil, err
	}
	return b, nil
}

// ForEach calls cb once per blob.
func (iter *BlobIter) ForEach(cb func(*Blob) error) error {
	for {
		b, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(b); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close releases the underlying iterator.
func (iter *BlobIter) Close() { iter.iter.Close() }

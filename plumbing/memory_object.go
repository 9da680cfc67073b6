package plumbing

import (
	"bytes"
	"errors"
	"io"
)

var errMemoryObjectTooLarge = errors.New("memory object too large")

// MemoryObject is an EncodedObject implementation that keeps its payload
// buffered in memory. It is the default object representation for storages
// that do not stream to disk (storage/memory) and for any code path that
// builds an object before it knows which store it will land in.
type MemoryObject struct {
	t    ObjectType
	h    Hash
	sz   int64
	cont []byte
	oh   *ObjectHasher

	hashComputed bool
}

// NewMemoryObject returns an empty MemoryObject that hashes its content
// using oh. A nil oh defaults to SHA1.
func NewMemoryObject(oh *ObjectHasher) *MemoryObject {
	return &MemoryObject{oh: oh}
}

// Hash returns the object's OID, computing and caching it on first use.
func (o *MemoryObject) Hash() Hash {
	if !o.hashComputed {
		h := o.oh
		if h == nil {
			h, _ = NewObjectHasher(UnsetObjectFormat)
		}
		if h != nil {
			if oid, err := h.Compute(o.t, o.cont); err == nil {
				o.h = oid
				o.hashComputed = true
			}
		}
	}
	return o.h
}

// Type returns the object's type.
func (o *MemoryObject) Type() ObjectType { return o.t }

// SetType sets the object's type.
func (o *MemoryObject) SetType(t ObjectType) { o.t = t }

// Size returns the object's declared payload size.
func (o *MemoryObject) Size() int64 { return o.sz }

// SetSize sets the object's declared payload size, truncating the buffer if
// smaller than the current content.
func (o *MemoryObject) SetSize(s int64) {
	o.sz = s
	if int64(len(o.cont)) > s {
		o.cont = o.cont[:s]
	}
}

// Reader returns a new reader over the object's buffered content.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(o.cont)), nil
}

// Writer returns a writer that appends to the object's buffered content.
func (o *MemoryObject) Writer() (io.WriteCloser, error) {
	return &memoryObjectWriter{o}, nil
}

// Write appends p to the object's content, growing Size and invalidating any
// cached hash.
func (o *MemoryObject) Write(p []byte) (int, error) {
	o.cont = append(o.cont, p...)
	o.sz = int64(len(o.cont))
	o.hashComputed = false
	return len(p), nil
}

type memoryObjectWriter struct{ o *MemoryObject }

func (w *memoryObjectWriter) Write(p []byte) (int, error) { return w.o.Write(p) }
func (w *memoryObjectWriter) Close() error                { return nil }

var _ EncodedObject = (*MemoryObject)(nil)

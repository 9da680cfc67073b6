package storer

import (
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing"
)

// ReferenceStorer is a generic storage of references.
type ReferenceStorer interface {
	SetReference(*plumbing.Reference) error
	// CheckAndSetReference sets the reference `new`, only if the reference
	// pointed by `old` has the same hash as the stored reference. If `old`
	// is nil the operation won't take into account the `old` reference.
	CheckAndSetReference(new, old *plumbing.Reference) error
	Reference(plumbing.ReferenceName) (*plumbing.Reference, error)
	IterReferences() (ReferenceIter, error)
	RemoveReference(plumbing.ReferenceName) error
	CountLooseRefs() (int, error)
	PackRefs() error
}

// ReferenceIter is a generic closable interface for iterating over
// references.
type ReferenceIter interface {
	Next() (*plumbing.Reference, error)
	ForEach(func(*plumbing.Reference) error) error
	Close()
}

// ReferenceSliceIter implements ReferenceIter over a plain slice.
type ReferenceSliceIter struct {
	series []*plumbing.Reference
	pos    int
}

// NewReferenceSliceIter returns a ReferenceIter that iterates over the given
// slice of references.
func NewReferenceSliceIter(series []*plumbing.Reference) ReferenceIter {
	return &ReferenceSliceIter{series: series}
}

func (iter *ReferenceSliceIter) Next() (*plumbing.Reference, error) {
	if iter.pos >= len(iter.series) {
		return nil, io.EOF
	}

	obj := iter.series[iter.pos]
	iter.pos++
	return obj, nil
}

func (iter *ReferenceSliceIter) ForEach(cb func(*plumbing.Reference) error) error {
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

func (iter *ReferenceSliceIter) Close() {
	iter.pos = len(iter.series)
}

// ReferenceFilteredIter filters an underlying ReferenceIter with f, skipping
// any reference for which f returns false.
type ReferenceFilteredIter struct {
	f    func(r *plumbing.Reference) bool
	iter ReferenceIter
}

// NewReferenceFilteredIter returns a ReferenceIter that only iterates over
// the references for which f returns true.
func NewReferenceFilteredIter(
	f func(r *plumbing.Reference) bool, iter ReferenceIter,
) ReferenceIter {
	return &ReferenceFilteredIter{f, iter}
}

func (iter *ReferenceFilteredIter) Next() (*plumbing.Reference, error) {
	for {
		obj, err := iter.iter.Next()
		if err != nil {
			return nil, err
		}

		if iter.f(obj) {
			return obj, nil
		}

		continue
	}
}

func (iter *ReferenceFilteredIter) ForEach(cb func(*plumbing.Reference) error) error {
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

func (iter *ReferenceFilteredIter) Close() { iter.iter.Close() }

// MultiReferenceIter iterates over several ReferenceIters, in order.
type MultiReferenceIter struct {
	iters []ReferenceIter
	pos   int
}

// NewMultiReferenceIter returns a ReferenceIter that iterates over the given
// iterators, in order.
func NewMultiReferenceIter(iters []ReferenceIter) ReferenceIter {
	return &MultiReferenceIter{iters: iters}
}

func (it *MultiReferenceIter) Next() (*plumbing.Reference, error) {
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

func (it *MultiReferenceIter) ForEach(cb func(*plumbing.Reference) error) error {
	for {
		obj, err := it.Next()
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

func (it *MultiReferenceIter) Close() {
	for _, i := range it.iters {
		i.Close()
	}
}

// ResolveReference resolves a symbolic reference to the hash reference it
// ultimately points to, following up to a bounded number of hops.
func ResolveReference(s ReferenceStorer, n plumbing.ReferenceName) (*plumbing.Reference, error) {
	r, err := s.Reference(n)
	if err != nil || r == nil {
		return r, err
	}

	const maxDepth = 10
	for i := 0; i < maxDepth && r.Type() == plumbing.SymbolicReference; i++ {
		var err error
		r, err = s.Reference(r.Target())
		if err != nil {
			return nil, err
		}
	}

	if r.Type() == plumbing.SymbolicReference {
		return nil, plumbing.ErrReferenceNotFound
	}

	return r, nil
}

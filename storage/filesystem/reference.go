package filesystem

import (
	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
	"github.com/awesome-os/universal-git-sub008/storage/filesystem/dotgit"
)

// ReferenceStorage is an implementation of storer.ReferenceStorer backed by
// the loose and packed refs of a DotGit directory.
type ReferenceStorage struct {
	dir *dotgit.DotGit
}

// SetReference stores ref unconditionally.
func (r ReferenceStorage) SetReference(ref *plumbing.Reference) error {
	return r.dir.SetRef(ref, nil)
}

// CheckAndSetReference stores new, failing with storage.ErrReferenceHasChanged
// if the current value of the reference doesn't match old.
func (r ReferenceStorage) CheckAndSetReference(new, old *plumbing.Reference) error {
	return r.dir.SetRef(new, old)
}

// Reference returns the reference named n.
func (r ReferenceStorage) Reference(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	return r.dir.Ref(n)
}

// IterReferences returns an iterator over every reference, loose or packed.
func (r ReferenceStorage) IterReferences() (storer.ReferenceIter, error) {
	refs, err := r.dir.Refs()
	if err != nil {
		return nil, err
	}

	return storer.NewReferenceSliceIter(refs), nil
}

// RemoveReference deletes the reference named n.
func (r ReferenceStorage) RemoveReference(n plumbing.ReferenceName) error {
	return r.dir.RemoveRef(n)
}

// CountLooseRefs returns the number of references not stored in packed-refs.
func (r ReferenceStorage) CountLooseRefs() (int, error) {
	return r.dir.CountLooseRefs()
}

// PackRefs is a no-op: loose refs are already consulted transparently
// alongside packed-refs by Reference/IterReferences.
func (r ReferenceStorage) PackRefs() error {
	return nil
}

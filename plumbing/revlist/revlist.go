// Package revlist implements functions to walk the objects referenced by a
// commit history. Roughly equivalent to git-rev-list command.
package revlist

import (
	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// Objects applies a complementary set. It gets all the hashes from all the
// objects reachable from the given starting points (commit, tree, blob, or
// tag hashes), skipping anything reachable from the hashes in ignore. All
// objects must be accessible from the given object storer.
func Objects(
	s storer.EncodedObjectStorer,
	objects []plumbing.Hash,
	ignore []plumbing.Hash) ([]plumbing.Hash, error) {

	return ObjectsWithStorageForIgnores(s, s, objects, ignore)
}

// ObjectsWithStorageForIgnores behaves like Objects, except the hashes in
// ignore are resolved and walked against ignoreStorer rather than s. This
// lets a push avoid revisiting the full remote history when the remote
// happens to be a local filesystem repository: the ignore set can then be
// computed from that local storer directly instead of streaming it over the
// main storer's possibly-remote backend.
func ObjectsWithStorageForIgnores(
	s, ignoreStorer storer.EncodedObjectStorer,
	objects []plumbing.Hash,
	ignore []plumbing.Hash) ([]plumbing.Hash, error) {

	seen := make(map[plumbing.Hash]bool)
	noop := func(plumbing.Hash) error { return nil }
	for _, h := range ignore {
		if err := walkObject(ignoreStorer, h, seen, noop); err != nil {
			return nil, err
		}
	}

	result := make(map[plumbing.Hash]bool)
	for _, h := range objects {
		err := walkObject(s, h, seen, func(h plumbing.Hash) error {
			if !seen[h] {
				result[h] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return hashSetToList(result), nil
}

// walkObject marks h, and everything reachable from it, seen, invoking cb
// once per newly-seen hash. A commit pulls in its full history plus every
// tree and blob each commit references; a tag recurses into its target; a
// tree recurses into its entries; a blob is a leaf.
func walkObject(s storer.EncodedObjectStorer, h plumbing.Hash, seen map[plumbing.Hash]bool, cb func(plumbing.Hash) error) error {
	if seen[h] {
		return nil
	}

	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return err
	}

	switch o.Type() {
	case plumbing.CommitObject:
		c, err := object.DecodeCommit(s, o)
		if err != nil {
			return err
		}
		return walkCommit(s, c, seen, cb)
	case plumbing.TreeObject:
		return walkTree(s, h, seen, cb)
	case plumbing.TagObject:
		seen[h] = true
		if err := cb(h); err != nil {
			return err
		}

		t, err := object.DecodeTag(s, o)
		if err != nil {
			return err
		}
		return walkObject(s, t.Target, seen, cb)
	default:
		seen[h] = true
		return cb(h)
	}
}

// walkCommit walks commit and every ancestor reachable through
// ParentHashes, pulling in each commit's tree (and everything under it) the
// first time that commit is seen.
func walkCommit(s storer.EncodedObjectStorer, commit *object.Commit, seen map[plumbing.Hash]bool, cb func(plumbing.Hash) error) error {
	if seen[commit.Hash] {
		return nil
	}
	seen[commit.Hash] = true

	if err := cb(commit.Hash); err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}
	if err := walkTree(s, tree.Hash, seen, cb); err != nil {
		return err
	}

	for _, ph := range commit.ParentHashes {
		if seen[ph] {
			continue
		}

		parent, err := object.GetCommit(s, ph)
		if err != nil {
			return err
		}
		if err := walkCommit(s, parent, seen, cb); err != nil {
			return err
		}
	}

	return nil
}

// walkTree recurses into every entry of the tree at h, treating directory
// entries as subtrees and everything else as a blob leaf.
func walkTree(s storer.EncodedObjectStorer, h plumbing.Hash, seen map[plumbing.Hash]bool, cb func(plumbing.Hash) error) error {
	if seen[h] {
		return nil
	}
	seen[h] = true
	if err := cb(h); err != nil {
		return err
	}

	t, err := object.GetTree(s, h)
	if err != nil {
		return err
	}

	for _, e := range t.Entries {
		if e.Mode == filemode.Dir {
			if err := walkTree(s, e.Hash, seen, cb); err != nil {
				return err
			}
			continue
		}

		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		if err := cb(e.Hash); err != nil {
			return err
		}
	}

	return nil
}

func hashSetToList(hashes map[plumbing.Hash]bool) []plumbing.Hash {
	var result []plumbing.Hash
	for key := range hashes {
		result = append(result, key)
	}

	return result
}

// newCommitsByTime returns a binary heap that pops the commit with the
// newest committer time first, the ordering git itself uses when walking
// history to find a merge base. Built on gods/binaryheap rather than
// container/heap, the same priority-queue library the teacher's own
// commitgraph walkers use.
func newCommitsByTime() *binaryheap.Heap {
	return binaryheap.NewWith(func(a, b interface{}) int {
		ca, cb := a.(*object.Commit), b.(*object.Commit)
		switch {
		case ca.Committer.When.After(cb.Committer.When):
			return -1
		case ca.Committer.When.Before(cb.Committer.When):
			return 1
		default:
			return 0
		}
	})
}

// MergeBase finds the best common ancestors of ours and theirs by walking
// both histories in committer-time order and tracking, per commit, which
// side(s) have reached it. The first commit reached from both sides is
// returned; ties (criss-cross merges with multiple best ancestors) are not
// disambiguated further, mirroring a single-result git-merge-base.
func MergeBase(s storer.EncodedObjectStorer, ours, theirs *object.Commit) (*object.Commit, error) {
	const (
		sideOurs   = 1
		sideTheirs = 2
	)

	if ours.Hash == theirs.Hash {
		return ours, nil
	}

	visited := make(map[plumbing.Hash]int)
	visited[ours.Hash] = sideOurs
	visited[theirs.Hash] |= sideTheirs

	h := newCommitsByTime()
	h.Push(ours)
	h.Push(theirs)

	for !h.Empty() {
		top, _ := h.Pop()
		c := top.(*object.Commit)

		side := visited[c.Hash]
		if side == sideOurs|sideTheirs {
			return c, nil
		}

		for _, ph := range c.ParentHashes {
			prevSide := visited[ph]
			newSide := prevSide | side
			if newSide == prevSide {
				continue
			}
			visited[ph] = newSide

			parent, err := object.GetCommit(s, ph)
			if err != nil {
				return nil, err
			}

			if newSide == sideOurs|sideTheirs {
				return parent, nil
			}

			h.Push(parent)
		}
	}

	return nil, nil
}

// IsAncestor reports whether ancestor is reachable from commit by following
// parent links, including the case where they are the same commit.
func IsAncestor(s storer.EncodedObjectStorer, ancestor, commit *object.Commit) (bool, error) {
	if ancestor.Hash == commit.Hash {
		return true, nil
	}

	seen := make(map[plumbing.Hash]bool)
	queue := []plumbing.Hash{commit.Hash}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		if h == ancestor.Hash {
			return true, nil
		}
		if seen[h] {
			continue
		}
		seen[h] = true

		c, err := object.GetCommit(s, h)
		if err != nil {
			return false, err
		}

		queue = append(queue, c.ParentHashes...)
	}

	return false, nil
}

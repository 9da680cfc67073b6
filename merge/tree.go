// Package merge implements git's three-way merge: a recursive tree walk
// over a common ancestor and the two tips being merged, producing a merged
// tree plus any unresolved conflicts, and a diff3-style line merge for the
// blobs that changed on both sides.
package merge

import (
	"bytes"
	"fmt"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
	"github.com/awesome-os/universal-git-sub008/plumbing/revlist"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// MergeNotSupportedError is returned when a path changed from a file to a
// directory (or vice versa) on different sides of the merge; git itself
// refuses to resolve this automatically and so do we.
type MergeNotSupportedError struct {
	Path string
}

func (e *MergeNotSupportedError) Error() string {
	return fmt.Sprintf("merge of %q not supported: file/directory type conflict", e.Path)
}

// Conflict describes one path that could not be merged automatically.
type Conflict struct {
	Path   string
	Reason string
}

// Result is the outcome of a merge: either a clean merge (len(Conflicts)
// == 0) producing TreeHash, or a merge with unresolved paths whose content
// still carries diff3 conflict markers in TreeHash.
type Result struct {
	TreeHash      plumbing.Hash
	Conflicts     []Conflict
	AlreadyMerged bool
	FastForward   bool
}

type objectStorer interface {
	storer.EncodedObjectStorer
}

// MergeCommits merges theirs into ours using base as the common ancestor,
// fast-forwarding or short-circuiting when possible before falling back to
// a full three-way tree merge.
func MergeCommits(s objectStorer, ours, theirs *object.Commit) (*Result, error) {
	if ours.Hash == theirs.Hash {
		return &Result{TreeHash: ours.TreeHash, AlreadyMerged: true}, nil
	}

	base, err := revlist.MergeBase(s, ours, theirs)
	if err != nil {
		return nil, err
	}

	if base != nil {
		if base.Hash == theirs.Hash {
			return &Result{TreeHash: ours.TreeHash, AlreadyMerged: true}, nil
		}
		if base.Hash == ours.Hash {
			t, err := theirs.Tree()
			if err != nil {
				return nil, err
			}
			return &Result{TreeHash: t.Hash, FastForward: true}, nil
		}
	}

	oursTree, err := ours.Tree()
	if err != nil {
		return nil, err
	}
	theirsTree, err := theirs.Tree()
	if err != nil {
		return nil, err
	}

	var baseTree *object.Tree
	if base != nil {
		baseTree, err = base.Tree()
		if err != nil {
			return nil, err
		}
	}

	return MergeTrees(s, baseTree, oursTree, theirsTree)
}

// MergeTrees performs the recursive three-way merge of base, ours, and
// theirs, any of which may be nil to represent an empty tree.
func MergeTrees(s objectStorer, base, ours, theirs *object.Tree) (*Result, error) {
	conflicts := []Conflict{}

	merged, err := mergeTree(s, "", base, ours, theirs, &conflicts)
	if err != nil {
		return nil, err
	}

	h, err := writeTree(s, merged)
	if err != nil {
		return nil, err
	}

	return &Result{TreeHash: h, Conflicts: conflicts}, nil
}

func mergeTree(s objectStorer, prefix string, base, ours, theirs *object.Tree, conflicts *[]Conflict) ([]object.TreeEntry, error) {
	baseEntries := entryMap(base)
	oursEntries := entryMap(ours)
	theirsEntries := entryMap(theirs)

	names := make(map[string]bool)
	for n := range baseEntries {
		names[n] = true
	}
	for n := range oursEntries {
		names[n] = true
	}
	for n := range theirsEntries {
		names[n] = true
	}

	var out []object.TreeEntry
	for name := range names {
		path := join(prefix, name)
		b, bOk := baseEntries[name]
		o, oOk := oursEntries[name]
		t, tOk := theirsEntries[name]

		entry, keep, err := mergeEntry(s, path, b, bOk, o, oOk, t, tOk, conflicts)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, entry)
		}
	}

	return out, nil
}

func mergeEntry(
	s objectStorer,
	path string,
	base object.TreeEntry, baseOk bool,
	ours object.TreeEntry, oursOk bool,
	theirs object.TreeEntry, theirsOk bool,
	conflicts *[]Conflict,
) (object.TreeEntry, bool, error) {
	name := lastName(path)

	// Both sides agree (including both-absent, both-deleted, or both
	// unchanged): nothing to do.
	if oursOk == theirsOk {
		if !oursOk {
			return object.TreeEntry{}, false, nil
		}
		if ours.Hash == theirs.Hash && ours.Mode == theirs.Mode {
			return ours, true, nil
		}
	}

	// Unchanged on one side relative to base: take the side that changed.
	if baseOk && oursOk && ours.Hash == base.Hash && ours.Mode == base.Mode {
		if !theirsOk {
			return object.TreeEntry{}, false, nil // deleted by theirs, unchanged by ours
		}
		return theirs, true, nil
	}
	if baseOk && theirsOk && theirs.Hash == base.Hash && theirs.Mode == base.Mode {
		if !oursOk {
			return object.TreeEntry{}, false, nil // deleted by ours, unchanged by theirs
		}
		return ours, true, nil
	}

	// Added on only one side (no base entry at all).
	if !baseOk {
		switch {
		case oursOk && !theirsOk:
			return ours, true, nil
		case !oursOk && theirsOk:
			return theirs, true, nil
		case oursOk && theirsOk:
			return mergeAddAdd(s, path, name, ours, theirs, conflicts)
		default:
			return object.TreeEntry{}, false, nil
		}
	}

	// Present in base. One or both sides are now absent: modify/delete.
	if !oursOk || !theirsOk {
		return mergeModifyDelete(s, path, name, base, ours, oursOk, theirs, theirsOk, conflicts)
	}

	// Present (and changed from base) on both sides.
	if ours.Mode == filemode.Dir || theirs.Mode == filemode.Dir {
		if ours.Mode != filemode.Dir || theirs.Mode != filemode.Dir {
			return object.TreeEntry{}, false, &MergeNotSupportedError{Path: path}
		}

		var baseSub, oursSub, theirsSub *object.Tree
		var err error
		if baseOk && base.Mode == filemode.Dir {
			if baseSub, err = object.GetTree(s, base.Hash); err != nil {
				return object.TreeEntry{}, false, err
			}
		}
		if oursSub, err = object.GetTree(s, ours.Hash); err != nil {
			return object.TreeEntry{}, false, err
		}
		if theirsSub, err = object.GetTree(s, theirs.Hash); err != nil {
			return object.TreeEntry{}, false, err
		}

		subEntries, err := mergeTree(s, path, baseSub, oursSub, theirsSub, conflicts)
		if err != nil {
			return object.TreeEntry{}, false, err
		}

		h, err := writeTree(s, subEntries)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		return object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h}, true, nil
	}

	return mergeContent(s, path, name, base, ours, theirs, conflicts)
}

func mergeAddAdd(s objectStorer, path, name string, ours, theirs object.TreeEntry, conflicts *[]Conflict) (object.TreeEntry, bool, error) {
	if ours.Mode == filemode.Dir || theirs.Mode == filemode.Dir {
		if ours.Mode != theirs.Mode {
			return object.TreeEntry{}, false, &MergeNotSupportedError{Path: path}
		}

		var oursSub, theirsSub *object.Tree
		var err error
		if oursSub, err = object.GetTree(s, ours.Hash); err != nil {
			return object.TreeEntry{}, false, err
		}
		if theirsSub, err = object.GetTree(s, theirs.Hash); err != nil {
			return object.TreeEntry{}, false, err
		}

		subEntries, err := mergeTree(s, path, nil, oursSub, theirsSub, conflicts)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		h, err := writeTree(s, subEntries)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		return object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h}, true, nil
	}

	var empty object.TreeEntry
	return mergeContent(s, path, name, empty, ours, theirs, conflicts)
}

func mergeModifyDelete(
	s objectStorer,
	path, name string,
	base object.TreeEntry,
	ours object.TreeEntry, oursOk bool,
	theirs object.TreeEntry, theirsOk bool,
	conflicts *[]Conflict,
) (object.TreeEntry, bool, error) {
	if !oursOk && !theirsOk {
		return object.TreeEntry{}, false, nil
	}

	// One side deletes, the other leaves it unchanged from base: deletion
	// wins (already handled above for the unchanged case, but a directory
	// whose inner entries all vanished falls through here too).
	if oursOk && ours.Hash == base.Hash && ours.Mode == base.Mode {
		return object.TreeEntry{}, false, nil
	}
	if theirsOk && theirs.Hash == base.Hash && theirs.Mode == base.Mode {
		return object.TreeEntry{}, false, nil
	}

	*conflicts = append(*conflicts, Conflict{Path: path, Reason: "modify/delete"})

	// Keep the modified side's content so the tree still reflects work in
	// progress, matching how git leaves the modified blob in place.
	if oursOk {
		return ours, true, nil
	}
	return theirs, true, nil
}

func mergeContent(s objectStorer, path, name string, base, ours, theirs object.TreeEntry, conflicts *[]Conflict) (object.TreeEntry, bool, error) {
	mode := ours.Mode
	if mode != theirs.Mode {
		mode = filemode.Regular
	}

	baseBytes, err := blobBytes(s, base.Hash)
	if err != nil {
		return object.TreeEntry{}, false, err
	}
	oursBytes, err := blobBytes(s, ours.Hash)
	if err != nil {
		return object.TreeEntry{}, false, err
	}
	theirsBytes, err := blobBytes(s, theirs.Hash)
	if err != nil {
		return object.TreeEntry{}, false, err
	}

	if looksBinary(baseBytes) || looksBinary(oursBytes) || looksBinary(theirsBytes) {
		*conflicts = append(*conflicts, Conflict{Path: path, Reason: "binary content conflict"})
		return ours, true, nil
	}

	merged, conflicted := mergeLines(string(baseBytes), string(oursBytes), string(theirsBytes))
	if conflicted {
		*conflicts = append(*conflicts, Conflict{Path: path, Reason: "content conflict"})
	}

	o := &plumbing.MemoryObject{}
	o.SetType(plumbing.BlobObject)
	w, err := o.Writer()
	if err != nil {
		return object.TreeEntry{}, false, err
	}
	if _, err := w.Write([]byte(merged)); err != nil {
		w.Close()
		return object.TreeEntry{}, false, err
	}
	if err := w.Close(); err != nil {
		return object.TreeEntry{}, false, err
	}

	h, err := s.SetEncodedObject(o)
	if err != nil {
		return object.TreeEntry{}, false, err
	}

	return object.TreeEntry{Name: name, Mode: mode, Hash: h}, true, nil
}

func blobBytes(s objectStorer, h plumbing.Hash) ([]byte, error) {
	if h.IsZero() {
		return nil, nil
	}

	b, err := object.GetBlob(s, h)
	if err != nil {
		return nil, err
	}

	r, err := b.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func looksBinary(b []byte) bool {
	n := len(b)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}

func writeTree(s objectStorer, entries []object.TreeEntry) (plumbing.Hash, error) {
	t := &object.Tree{Entries: entries}
	o := &plumbing.MemoryObject{}
	o.SetType(plumbing.TreeObject)
	if err := t.Encode(o); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(o)
}

func entryMap(t *object.Tree) map[string]object.TreeEntry {
	m := make(map[string]object.TreeEntry)
	if t == nil {
		return m
	}
	for _, e := range t.Entries {
		m[e.Name] = e
	}
	return m
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func lastName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

package object

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// ErrMaxTreeDepth is returned by TreeWalker when a path's directory nesting
// exceeds the engine's recursion guard.
var ErrMaxTreeDepth = fmt.Errorf("maximum tree depth exceeded")

// ErrFileNotFound is returned when a named path does not resolve to a blob
// inside a tree.
var ErrFileNotFound = fmt.Errorf("file not found")

// ErrDirectoryNotFound is returned when a named path does not resolve to a
// subtree inside a tree.
var ErrDirectoryNotFound = fmt.Errorf("directory not found")

// ErrEntryNotFound is returned when a named path does not resolve to any
// entry, file or directory, inside a tree.
var ErrEntryNotFound = fmt.Errorf("entry not found")

const maxTreeDepth = 1024

// TreeEntry is one (mode, name, oid) line of a tree object (§3: trees are
// ordered lists of entries, sorted as if directory names carried a trailing
// slash).
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is a Git tree object: a flat, ordered list of entries, each naming
// either a blob, a subtree, or a submodule commit.
type Tree struct {
	Entries []TreeEntry
	Hash    plumbing.Hash

	s storer.EncodedObjectStorer
	m map[string]*TreeEntry
}

// ID returns the tree's OID, satisfying Object.
func (t *Tree) ID() plumbing.Hash { return t.Hash }

// Type always returns plumbing.TreeObject, satisfying Object.
func (t *Tree) Type() plumbing.ObjectType { return plumbing.TreeObject }

// Decode parses t's fields from the canonical tree encoding:
// `<mode> SP <name> NUL <20-or-32-byte-oid>` repeated per entry.
func (t *Tree) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TreeObject {
		return plumbing.ErrInvalidType
	}

	t.Hash = o.Hash()
	if o.Size() == 0 {
		t.Entries = nil
		return nil
	}

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioclose(r, &err)

	reader := bufio.NewReader(r)
	for {
		mode, err := reader.ReadString(' ')
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmtDecodeError("tree", err)
		}
		mode = mode[:len(mode)-1]

		fm, err := filemode.New(mode)
		if err != nil {
			return fmtDecodeError("tree", err)
		}

		name, err := reader.ReadString(0)
		if err != nil {
			return fmtDecodeError("tree", err)
		}
		name = name[:len(name)-1]

		hashBytes := make([]byte, t.Hash.Size())
		if _, err := io.ReadFull(reader, hashBytes); err != nil {
			return fmtDecodeError("tree", err)
		}

		h, ok := plumbing.FromBytes(hashBytes)
		if !ok {
			return fmtDecodeError("tree", fmt.Errorf("bad entry hash"))
		}

		t.Entries = append(t.Entries, TreeEntry{Name: name, Mode: fm, Hash: h})
	}

	return nil
}

// Encode writes t's canonical byte encoding into o.
func (t *Tree) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TreeObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, e := range t.Entries {
		mode := strings.TrimLeft(e.Mode.String(), "0")
		if mode == "" {
			mode = "0"
		}
		if _, err := fmt.Fprintf(w, "%s %s", mode, e.Name); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
		if _, err := w.Write(e.Hash.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tree) buildMap() {
	if t.m != nil {
		return
	}

	t.m = make(map[string]*TreeEntry, len(t.Entries))
	for i := range t.Entries {
		t.m[t.Entries[i].Name] = &t.Entries[i]
	}
}

// File returns the blob entry at name, a direct (non-recursive) child of t.
func (t *Tree) File(name string) (*File, error) {
	e, err := t.entry(name)
	if err != nil {
		return nil, ErrFileNotFound
	}

	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return NewFile(name, e.Mode, blob), nil
}

func (t *Tree) entry(name string) (*TreeEntry, error) {
	t.buildMap()
	e, ok := t.m[name]
	if !ok {
		return nil, ErrEntryNotFound
	}

	return e, nil
}

// Tree returns the subtree entry at name, a direct child of t.
func (t *Tree) Tree(name string) (*Tree, error) {
	e, err := t.entry(name)
	if err != nil {
		return nil, ErrDirectoryNotFound
	}

	tree, err := GetTree(t.s, e.Hash)
	if err != nil {
		if err == plumbing.ErrObjectNotFound {
			return nil, ErrDirectoryNotFound
		}
		return nil, err
	}

	return tree, nil
}

// FindEntry walks path components, descending into subtrees, and returns
// the entry at the end of the path.
func (t *Tree) FindEntry(path string) (*TreeEntry, error) {
	pathParts := strings.Split(path, "/")
	var tree *Tree
	if len(pathParts) > 1 {
		var err error
		tree, err = t.findSubtree(pathParts[:len(pathParts)-1])
		if err != nil {
			return nil, err
		}
	} else {
		tree = t
	}

	return tree.entry(pathParts[len(pathParts)-1])
}

func (t *Tree) findSubtree(pathParts []string) (*Tree, error) {
	var tree = t
	for _, part := range pathParts {
		subtree, err := tree.Tree(part)
		if err != nil {
			return nil, err
		}
		tree = subtree
	}
	return tree, nil
}

// TreeEntryFile resolves a TreeEntry that names a blob into a *File, given
// the tree it was produced from.
func (t *Tree) TreeEntryFile(e *TreeEntry) (*File, error) {
	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		return nil, err
	}

	return NewFile(e.Name, e.Mode, blob), nil
}

// Files returns an iterator walking every blob entry reachable from t,
// recursively, in lexicographic path order.
func (t *Tree) Files() *FileIter {
	return NewFileIter(t.s, t)
}

// Diff-free equality helper: not used by the wire protocol, only callers
// comparing two trees directly (e.g. merge's unchanged-subtree fast path).
func (t *Tree) Equal(other *Tree) bool {
	if len(t.Entries) != len(other.Entries) {
		return false
	}
	for i := range t.Entries {
		if t.Entries[i] != other.Entries[i] {
			return false
		}
	}
	return true
}

func ioclose(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = cerr
	}
}

// DecodeTree decodes o into a *Tree, binding s for lazy child lookups.
func DecodeTree(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tree, error) {
	t := &Tree{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}
	return t, nil
}

// TreeIter iterates over a sequence of trees, decoding each as reached.
type TreeIter struct {
	s    storer.EncodedObjectStorer
	iter storer.EncodedObjectIter
}

// NewTreeIter returns a TreeIter over the objects produced by iter.
func NewTreeIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TreeIter {
	return &TreeIter{s, iter}
}

// Next decodes and returns the next tree, or io.EOF when exhausted.
func (iter *TreeIter) Next() (*Tree, error) {
	obj, err := iter.iter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeTree(iter.s, obj)
}

// ForEach calls cb once per tree.
func (iter *TreeIter) ForEach(cb func(*Tree) error) error {
	for {
		t, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(t); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close releases the underlying iterator.
func (iter *TreeIter) Close() { iter.iter.Close() }

// SortEntries orders a slice of tree entries the way Git sorts them before
// hashing: byte-wise, with directory names compared as if a trailing '/'
// were appended.
func SortEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeEntryLess(entries[i], entries[j])
	})
}

func treeEntryLess(a, b TreeEntry) bool {
	na, nb := a.Name, b.Name
	if a.Mode == filemode.Dir {
		na += "/"
	}
	if b.Mode == filemode.Dir {
		nb += "/"
	}
	return na < nb
}

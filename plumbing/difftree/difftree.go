// Package difftree computes the set of file-level changes between two
// tree objects, recursing into subtrees by hash so that identical
// directories are skipped without visiting their entries.
package difftree

import (
	"fmt"
	"strings"

	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
)

// Action describes how a path changed between two trees.
type Action int

const (
	// Insert means the path exists only in the second tree.
	Insert Action = iota
	// Delete means the path exists only in the first tree.
	Delete
	// Modify means the path's content or mode changed between the trees.
	Modify
)

// String returns the human-readable name of the action, panicking on an
// unrecognized value.
func (a Action) String() string {
	switch a {
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	case Modify:
		return "Modify"
	}

	panic(fmt.Sprintf("unsupported action: %d", a))
}

// ChangeEntry carries one side of a Change: the full path, the tree it was
// looked up in, and the entry itself.
type ChangeEntry struct {
	Name      string
	Tree      *object.Tree
	TreeEntry object.TreeEntry
}

// Change represents a single file-level difference between two trees.
type Change struct {
	From ChangeEntry
	To   ChangeEntry

	Action Action
}

func (c *Change) name() string {
	if c.From.Name != "" {
		return c.From.Name
	}

	return c.To.Name
}

// Files returns the blob on each side of the change, as object.Files. Either
// return value is nil when the change has no entry on that side (Insert has
// no from, Delete has no to).
func (c *Change) Files() (from, to *object.File, err error) {
	if c.From.Tree != nil {
		from, err = c.From.Tree.TreeEntryFile(&c.From.TreeEntry)
		if err != nil {
			return
		}
	}

	if c.To.Tree != nil {
		to, err = c.To.Tree.TreeEntryFile(&c.To.TreeEntry)
	}

	return
}

func (c *Change) String() string {
	return fmt.Sprintf("<Action: %s, Path: %s>", c.Action, c.name())
}

// Changes is a sortable collection of Change, ordered by path.
type Changes []*Change

func (c Changes) Len() int           { return len(c) }
func (c Changes) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c Changes) Less(i, j int) bool { return c[i].name() < c[j].name() }

func (c Changes) String() string {
	strs := make([]string, len(c))
	for i, ch := range c {
		strs[i] = ch.String()
	}

	return "[" + strings.Join(strs, ", ") + "]"
}

func newEmpty() Changes { return Changes{} }

// DiffTree returns the file-level changes needed to turn a into b. Either
// tree may be nil, representing the empty tree (as when diffing the root
// commit or a deletion of the whole tree).
func DiffTree(a, b *object.Tree) (Changes, error) {
	changes := newEmpty()

	if err := diffTree("", a, b, &changes); err != nil {
		return nil, err
	}

	return changes, nil
}

func diffTree(prefix string, a, b *object.Tree, out *Changes) error {
	aEntries := entryMap(a)
	bEntries := entryMap(b)

	for name, ae := range aEntries {
		be, ok := bEntries[name]
		path := join(prefix, name)

		switch {
		case !ok:
			if err := flatten(path, a, ae, Delete, out); err != nil {
				return err
			}
		case ae.Mode == filemode.Dir && be.Mode == filemode.Dir:
			if ae.Hash == be.Hash {
				continue
			}

			subA, err := a.Tree(name)
			if err != nil {
				return err
			}

			subB, err := b.Tree(name)
			if err != nil {
				return err
			}

			if err := diffTree(path, subA, subB, out); err != nil {
				return err
			}
		case ae.Mode == filemode.Dir || be.Mode == filemode.Dir:
			// A directory replaced a file, or vice versa: treat the old
			// side as wholly deleted and the new side as wholly inserted.
			if err := flatten(path, a, ae, Delete, out); err != nil {
				return err
			}

			if err := flatten(path, b, be, Insert, out); err != nil {
				return err
			}
		case ae.Hash != be.Hash || ae.Mode != be.Mode:
			*out = append(*out, &Change{
				From:   ChangeEntry{Name: path, Tree: a, TreeEntry: ae},
				To:     ChangeEntry{Name: path, Tree: b, TreeEntry: be},
				Action: Modify,
			})
		}
	}

	for name, be := range bEntries {
		if _, ok := aEntries[name]; ok {
			continue
		}

		path := join(prefix, name)
		if err := flatten(path, b, be, Insert, out); err != nil {
			return err
		}
	}

	return nil
}

// flatten appends one Change per file reachable under entry, recursing
// through subtrees; used when an entire directory was added or removed.
func flatten(path string, t *object.Tree, entry object.TreeEntry, action Action, out *Changes) error {
	if entry.Mode != filemode.Dir {
		ce := ChangeEntry{Name: path, Tree: t, TreeEntry: entry}
		c := &Change{Action: action}
		if action == Delete {
			c.From = ce
		} else {
			c.To = ce
		}

		*out = append(*out, c)
		return nil
	}

	sub, err := t.Tree(entry.Name)
	if err != nil {
		return err
	}

	for name, e := range entryMap(sub) {
		if err := flatten(join(path, name), sub, e, action, out); err != nil {
			return err
		}
	}

	return nil
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

package git

import (
	"errors"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/format/index"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
)

// ErrMissingAuthor is returned by CommitOptions.Validate when no author can
// be determined, neither explicitly nor from the repository config.
var ErrMissingAuthor = errors.New("author field is required")

// CommitOptions describes how a commit should be performed.
type CommitOptions struct {
	// Author is the original author of the commit; defaults to Committer
	// if nil.
	Author *object.Signature
	// Committer records who created the commit; defaults to Author, or
	// to the repository's configured user.name/user.email if Author is
	// also nil.
	Committer *object.Signature
	// Parents overrides the commit's parent list; defaults to the
	// current HEAD commit, if any.
	Parents []plumbing.Hash
	// AllowEmptyCommits permits a commit whose tree is unchanged from its
	// sole parent.
	AllowEmptyCommits bool
}

// Validate validates the fields and sets default values.
func (o *CommitOptions) Validate(r *Repository) error {
	if o.Committer == nil {
		o.Committer = o.Author
	}

	if o.Committer == nil {
		cfg, err := r.Config()
		if err != nil {
			return err
		}

		if cfg.User.Name == "" && cfg.User.Email == "" {
			return ErrMissingAuthor
		}

		o.Committer = &object.Signature{
			Name:  cfg.User.Name,
			Email: cfg.User.Email,
			When:  time.Now(),
		}
	}

	if o.Author == nil {
		o.Author = o.Committer
	}

	if o.Parents == nil {
		head, err := r.Head()
		if err == nil {
			o.Parents = []plumbing.Hash{head.Hash()}
		} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return err
		}
	}

	return nil
}

// Commit stages the worktree's current index as a new commit on top of
// HEAD, and moves HEAD (or the branch it points to) to the result.
// Returns the new commit's hash.
func (w *Worktree) Commit(msg string, o *CommitOptions) (plumbing.Hash, error) {
	if err := o.Validate(w.r); err != nil {
		return plumbing.ZeroHash, err
	}

	idx, err := w.r.s.Index()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	treeHash, err := writeTreeFromIndex(w.r.s, idx)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if !o.AllowEmptyCommits && len(o.Parents) == 1 {
		parent, err := object.GetCommit(w.r.s, o.Parents[0])
		if err == nil && parent.TreeHash == treeHash {
			return plumbing.ZeroHash, ErrEmptyCommit
		}
	}

	commit := &object.Commit{
		Author:       *o.Author,
		Committer:    *o.Committer,
		Message:      msg,
		TreeHash:     treeHash,
		ParentHashes: o.Parents,
	}

	obj := w.r.s.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}

	hash, err := w.r.s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return hash, w.r.updateHEAD(hash)
}

// ErrEmptyCommit is returned by Worktree.Commit when the resulting tree
// would be identical to its sole parent's, and AllowEmptyCommits is false.
var ErrEmptyCommit = errors.New("commit tree is identical to its parent; nothing to commit")

// updateHEAD moves HEAD to hash, following a symbolic HEAD to the branch
// it names, or overwriting HEAD directly if it is detached.
func (r *Repository) updateHEAD(hash plumbing.Hash) error {
	head, err := r.s.Reference(plumbing.HEAD)
	if err != nil {
		return err
	}

	name := plumbing.HEAD
	if head.Type() == plumbing.SymbolicReference {
		name = head.Target()
	}

	return r.s.SetReference(plumbing.NewHashReference(name, hash))
}

// treeNode is one level of the in-memory tree being assembled from a flat
// index while writing a commit.
type treeNode struct {
	entries  map[string]*index.Entry
	children map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{entries: map[string]*index.Entry{}, children: map[string]*treeNode{}}
}

// writeTreeFromIndex builds and stores the tree object graph matching idx,
// returning the hash of the root tree. Grounded in the same ordered,
// flat-to-nested TreeEntry shape plumbing/object/tree.go already decodes
// from the wire: every directory level becomes its own stored Tree object,
// children before parents.
func writeTreeFromIndex(s Storer, idx *index.Index) (plumbing.Hash, error) {
	root := newTreeNode()

	for _, e := range idx.Entries {
		insertIndexEntry(root, strings.Split(e.Name, "/"), e)
	}

	return writeTreeNode(s, root)
}

func insertIndexEntry(n *treeNode, parts []string, e *index.Entry) {
	if len(parts) == 1 {
		n.entries[parts[0]] = e
		return
	}

	child, ok := n.children[parts[0]]
	if !ok {
		child = newTreeNode()
		n.children[parts[0]] = child
	}

	insertIndexEntry(child, parts[1:], e)
}

func writeTreeNode(s Storer, n *treeNode) (plumbing.Hash, error) {
	var entries []object.TreeEntry

	for name, e := range n.entries {
		entries = append(entries, object.TreeEntry{
			Name: name,
			Mode: e.Mode,
			Hash: e.Hash,
		})
	}

	for name, child := range n.children {
		hash, err := writeTreeNode(s, child)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		entries = append(entries, object.TreeEntry{
			Name: name,
			Mode: filemode.Dir,
			Hash: hash,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return treeEntryName(entries[i]) < treeEntryName(entries[j])
	})

	tree := &object.Tree{Entries: entries}
	obj := s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}

	return s.SetEncodedObject(obj)
}

// treeEntryName sorts directory entries as if they carried a trailing
// slash, matching git's own tree entry ordering.
func treeEntryName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return path.Clean(e.Name) + "/"
	}
	return e.Name
}

package git

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v6"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/format/index"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
)

// Worktree represents a git worktree: the checked-out files belonging to a
// Repository, together with the index that tracks their staged state.
type Worktree struct {
	r  *Repository
	fs billy.Filesystem
}

// Filesystem returns the billy filesystem backing the worktree.
func (w *Worktree) Filesystem() billy.Filesystem {
	return w.fs
}

// Checkout materializes the tree of the commit named by hash onto the
// worktree filesystem and rewrites the index to match it. Existing files
// not present in the target tree are left untouched; a full clean
// checkout should be preceded by removing the worktree contents.
func (w *Worktree) Checkout(hash plumbing.Hash) error {
	commit, err := object.GetCommit(w.r.s, hash)
	if err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	idx := &index.Index{Version: 2}

	err = tree.Files().ForEach(func(f *object.File) error {
		if err := w.checkoutFile(f); err != nil {
			return err
		}

		e := idx.Add(f.Name)
		e.Hash = f.Hash()
		e.Mode = f.Mode

		return nil
	})
	if err != nil {
		return err
	}

	return w.r.s.SetIndex(idx)
}

func (w *Worktree) checkoutFile(f *object.File) error {
	if f.Mode == filemode.Symlink {
		return w.checkoutSymlink(f)
	}

	if dir := filepath.Dir(f.Name); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	mode := os.FileMode(0o644)
	if f.Mode == filemode.Executable {
		mode = 0o755
	}

	file, err := w.fs.OpenFile(f.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer file.Close()

	r, err := f.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(file, r)
	return err
}

func (w *Worktree) checkoutSymlink(f *object.File) error {
	if dir := filepath.Dir(f.Name); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	target, err := f.Contents()
	if err != nil {
		return err
	}

	return w.fs.Symlink(target, f.Name)
}

// Status reports, for every path tracked in the index, whether the
// worktree copy's content hash still matches the staged hash.
type Status map[string]bool

// Status computes which tracked files have been modified on disk relative
// to the current index.
func (w *Worktree) Status() (Status, error) {
	idx, err := w.r.s.Index()
	if err != nil {
		return nil, err
	}

	st := make(Status, len(idx.Entries))
	for _, e := range idx.Entries {
		h, err := w.hashFile(e.Name)
		if err != nil {
			st[e.Name] = true
			continue
		}

		st[e.Name] = h != e.Hash
	}

	return st, nil
}

func (w *Worktree) hashFile(name string) (plumbing.Hash, error) {
	fi, err := w.fs.Stat(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	f, err := w.fs.Open(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer f.Close()

	h := plumbing.NewHasher(plumbing.UnsetObjectFormat, plumbing.BlobObject, fi.Size())
	if _, err := io.Copy(h, f); err != nil {
		return plumbing.ZeroHash, err
	}

	return h.Sum(), nil
}

package object

import (
	"bufio"
	"io"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/filemode"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// File is a blob entry reached through a tree walk, carrying the path and
// mode it was found under (a blob itself knows neither).
type File struct {
	// Name is the full, slash-separated path from the root of the walk.
	Name string
	// Mode is the entry's file mode as recorded in its parent tree.
	Mode filemode.FileMode
	blob *Blob
}

// NewFile builds a File from a decoded blob found at name under mode.
func NewFile(name string, mode filemode.FileMode, blob *Blob) *File {
	return &File{Name: name, Mode: mode, blob: blob}
}

// Hash returns the underlying blob's OID.
func (f *File) Hash() plumbing.Hash { return f.blob.Hash }

// Size returns the blob's payload size, in bytes.
func (f *File) Size() int64 { return f.blob.Size }

// Reader returns a reader over the file's content.
func (f *File) Reader() (io.ReadCloser, error) { return f.blob.Reader() }

// Contents reads the entire file into a string. Use sparingly; large blobs
// should be streamed via Reader instead.
func (f *File) Contents() (string, error) {
	r, err := f.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsBinary reports whether the file looks binary, using the same "NUL in
// the first 8000 bytes" heuristic Git itself uses.
func (f *File) IsBinary() (bool, error) {
	reader, err := f.Reader()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	return isBinary(reader)
}

const sniffLen = 8000

func isBinary(r io.Reader) (bool, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return false, err
	}

	for _, b := range buf {
		if b == 0 {
			return true, nil
		}
	}
	return false, nil
}

// FileIter walks a tree recursively, yielding every blob entry reachable
// from it in lexicographic path order, depth first.
type FileIter struct {
	s     storer.EncodedObjectStorer
	stack []*treeEntryIter
}

type treeEntryIter struct {
	tree *Tree
	pos  int
	base string
}

// NewFileIter returns a FileIter rooted at t.
func NewFileIter(s storer.EncodedObjectStorer, t *Tree) *FileIter {
	return &FileIter{s: s, stack: []*treeEntryIter{{tree: t}}}
}

// Next returns the next file in the walk, or io.EOF when exhausted.
func (iter *FileIter) Next() (*File, error) {
	for {
		if len(iter.stack) == 0 {
			return nil, io.EOF
		}

		current := iter.stack[len(iter.stack)-1]
		if current.pos >= len(current.tree.Entries) {
			iter.stack = iter.stack[:len(iter.stack)-1]
			continue
		}

		e := current.tree.Entries[current.pos]
		current.pos++

		name := e.Name
		if current.base != "" {
			name = current.base + "/" + name
		}

		switch {
		case e.Mode == filemode.Dir:
			if len(iter.stack) >= maxTreeDepth {
				return nil, ErrMaxTreeDepth
			}
			subtree, err := GetTree(iter.s, e.Hash)
			if err != nil {
				return nil, err
			}
			iter.stack = append(iter.stack, &treeEntryIter{tree: subtree, base: name})
		case e.Mode == filemode.Submodule:
			continue
		default:
			blob, err := GetBlob(iter.s, e.Hash)
			if err != nil {
				if err == plumbing.ErrObjectNotFound {
					continue
				}
				return nil, err
			}
			return NewFile(name, e.Mode, blob), nil
		}
	}
}

// ForEach calls cb once per file.
func (iter *FileIter) ForEach(cb func(*File) error) error {
	for {
		f, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(f); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close is a no-op; FileIter holds no external resources beyond the
// storer it was handed.
func (iter *FileIter) Close() {}

package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// Commit is a snapshot of a tree plus history: one or more parent commits,
// an author and committer identity, an optional detached signature, and a
// free-form message (§3: a commit is `(tree, parents[], author, committer,
// gpgsig?, message)`).
type Commit struct {
	Hash         plumbing.Hash
	Author       Signature
	Committer    Signature
	PGPSignature string
	Message      string
	TreeHash     plumbing.Hash
	ParentHashes []plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the commit's OID, satisfying Object.
func (c *Commit) ID() plumbing.Hash { return c.Hash }

// Type always returns plumbing.CommitObject, satisfying Object.
func (c *Commit) Type() plumbing.ObjectType { return plumbing.CommitObject }

// Tree resolves and returns the commit's root tree.
func (c *Commit) Tree() (*Tree, error) {
	return GetTree(c.s, c.TreeHash)
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int { return len(c.ParentHashes) }

// Parents returns an iterator over the commit's parents, in recorded order.
func (c *Commit) Parents() CommitIter {
	return NewCommitIter(c.s,
		storer.NewEncodedObjectLookupIter(c.s, plumbing.CommitObject, c.ParentHashes),
	)
}

// Parent resolves the i'th parent commit.
func (c *Commit) Parent(i int) (*Commit, error) {
	if i < 0 || i >= len(c.ParentHashes) {
		return nil, plumbing.ErrObjectNotFound
	}
	return GetCommit(c.s, c.ParentHashes[i])
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.ParentHashes) > 1 }

// Decode parses c's fields from the canonical commit encoding: a sequence
// of `<key> SP <value>\n` header lines, an optional blank line, and the
// free-form message.
func (c *Commit) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.CommitObject {
		return plumbing.ErrInvalidType
	}

	c.Hash = o.Hash()

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioclose(r, &err)

	reader := bufio.NewReader(r)

	var message bool
	var pgpsig bool
	var msgbuf bytes.Buffer
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmtDecodeError("commit", readErr)
		}

		if pgpsig {
			if bytes.Equal([]byte(strings.TrimRight(line, "\n")), []byte(" -----END PGP SIGNATURE-----")) ||
				strings.HasPrefix(line, "-----END PGP SIGNATURE-----") {
				c.PGPSignature += strings.TrimPrefix(line, " ")
				pgpsig = false
				if readErr == io.EOF {
					break
				}
				continue
			}
			c.PGPSignature += strings.TrimPrefix(line, " ")
			if readErr == io.EOF {
				break
			}
			continue
		}

		if message {
			msgbuf.WriteString(line)
			if readErr == io.EOF {
				break
			}
			continue
		}

		trimmed := strings.TrimRight(line, "\n")
		if trimmed == "" {
			message = true
			if readErr == io.EOF {
				break
			}
			continue
		}

		split := strings.SplitN(trimmed, " ", 2)
		var field, value string
		field = split[0]
		if len(split) > 1 {
			value = split[1]
		}

		switch field {
		case "tree":
			c.TreeHash = plumbing.NewHash(value)
		case "parent":
			c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(value))
		case "author":
			c.Author.Decode([]byte(value))
		case "committer":
			c.Committer.Decode([]byte(value))
		case "gpgsig":
			pgpsig = true
			c.PGPSignature = value + "\n"
		default:
			// Unknown header (e.g. mergetag, encoding): ignored.
		}

		if readErr == io.EOF {
			break
		}
	}

	c.Message = msgbuf.String()
	return nil
}

// Encode writes c's canonical byte encoding into o.
func (c *Commit) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.CommitObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "tree %s\n", c.TreeHash.String()); err != nil {
		return err
	}

	for _, p := range c.ParentHashes {
		if _, err := fmt.Fprintf(w, "parent %s\n", p.String()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "author %s\n", c.Author.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "committer %s\n", c.Committer.String()); err != nil {
		return err
	}

	if c.PGPSignature != "" {
		sig := strings.TrimSuffix(c.PGPSignature, "\n")
		lines := strings.Split(sig, "\n")
		if _, err := fmt.Fprintf(w, "gpgsig %s\n", lines[0]); err != nil {
			return err
		}
		for _, l := range lines[1:] {
			if _, err := fmt.Fprintf(w, " %s\n", l); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s", c.Message); err != nil {
		return err
	}

	return nil
}

// String renders a one-line "commit <oid>" plus author/date/message
// summary, matching `git log`'s default format closely enough for
// debugging output; it is not a serialization format.
func (c *Commit) String() string {
	return fmt.Sprintf(
		"commit %s\nAuthor: %s\nDate:   %s\n\n%s\n",
		c.Hash, c.Author.String(), c.Author.When.Format(time.RFC1123Z), indent(c.Message),
	)
}

func indent(s string) string {
	var b bytes.Buffer
	for _, l := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", l)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// DecodeCommit decodes o into a *Commit, binding s for lazy tree/parent
// lookups.
func DecodeCommit(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Commit, error) {
	c := &Commit{s: s}
	if err := c.Decode(o); err != nil {
		return nil, err
	}
	return c, nil
}

// CommitIter is a closable iterator over a sequence of commits.
type CommitIter interface {
	Next() (*Commit, error)
	ForEach(func(*Commit) error) error
	Close()
}

type commitIter struct {
	s    storer.EncodedObjectStorer
	iter storer.EncodedObjectIter
}

// NewCommitIter returns a CommitIter over the objects produced by iter.
func NewCommitIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) CommitIter {
	return &commitIter{s, iter}
}

func (iter *commitIter) Next() (*Commit, error) {
	obj, err := iter.iter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeCommit(iter.s, obj)
}

func (iter *commitIter) ForEach(cb func(*Commit) error) error {
	for {
		c, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(c); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

func (iter *commitIter) Close() { iter.iter.Close() }

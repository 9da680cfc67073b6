package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
)

// ErrUnsupportedTargetType is returned by Encode when a tag's TargetType is
// not one of the four storable object kinds.
var ErrUnsupportedTargetType = fmt.Errorf("unsupported tag target type")

// Tag is an annotated tag: a named, signable pointer at some other object
// (§3: `(object, type, tag, tagger?, message, gpgsig?)`), distinct from a
// lightweight tag, which is just a ref pointing directly at a commit.
type Tag struct {
	Hash       plumbing.Hash
	Name       string
	Tagger     Signature
	Message    string
	PGPSignature string
	TargetType plumbing.ObjectType
	Target     plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the tag's own OID, satisfying Object.
func (t *Tag) ID() plumbing.Hash { return t.Hash }

// Type always returns plumbing.TagObject, satisfying Object.
func (t *Tag) Type() plumbing.ObjectType { return plumbing.TagObject }

// Commit resolves the tag's target as a commit. It fails if TargetType is
// not CommitObject.
func (t *Tag) Commit() (*Commit, error) {
	if t.TargetType != plumbing.CommitObject {
		return nil, fmt.Errorf("tag target is not a commit: %s", t.TargetType)
	}
	return GetCommit(t.s, t.Target)
}

// Object resolves and decodes the tag's target, whatever its type.
func (t *Tag) Object() (Object, error) {
	o, err := t.s.EncodedObject(t.TargetType, t.Target)
	if err != nil {
		return nil, err
	}
	return DecodeObject(t.s, o)
}

// Decode parses t's fields from the canonical tag encoding: `object`,
// `type`, `tag`, optional `tagger` header lines, a blank line, then the
// free-form message (and any trailing signature).
func (t *Tag) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TagObject {
		return plumbing.ErrInvalidType
	}

	t.Hash = o.Hash()

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioclose(r, &err)

	reader := bufio.NewReader(r)
	var message, pgpsig bool
	var msgbuf bytes.Buffer

	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmtDecodeError("tag", readErr)
		}

		if pgpsig {
			t.PGPSignature += line
			if readErr == io.EOF {
				break
			}
			continue
		}

		if message {
			if strings.HasPrefix(line, "-----BEGIN PGP SIGNATURE-----") {
				pgpsig = true
				t.PGPSignature = line
				if readErr == io.EOF {
					break
				}
				continue
			}
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
		field := split[0]
		var value string
		if len(split) > 1 {
			value = split[1]
		}

		switch field {
		case "object":
			t.Target = plumbing.NewHash(value)
		case "type":
			t.TargetType, err = plumbing.ParseObjectType(value)
			if err != nil {
				return fmtDecodeError("tag", err)
			}
		case "tag":
			t.Name = value
		case "tagger":
			t.Tagger.Decode([]byte(value))
		}

		if readErr == io.EOF {
			break
		}
	}

	t.Message = msgbuf.String()
	return nil
}

// Encode writes t's canonical byte encoding into o.
func (t *Tag) Encode(o plumbing.EncodedObject) error {
	if !t.TargetType.Valid() {
		return ErrUnsupportedTargetType
	}

	o.SetType(plumbing.TagObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "object %s\n", t.Target.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "type %s\n", t.TargetType.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tag %s\n", t.Name); err != nil {
		return err
	}
	if t.Tagger.Name != "" || t.Tagger.Email != "" {
		if _, err := fmt.Fprintf(w, "tagger %s\n", t.Tagger.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\n%s", t.Message); err != nil {
		return err
	}
	if t.PGPSignature != "" {
		if _, err := io.WriteString(w, t.PGPSignature); err != nil {
			return err
		}
	}

	return nil
}

// DecodeTag decodes o into a *Tag, binding s for lazy target lookups.
func DecodeTag(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tag, error) {
	t := &Tag{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}
	return t, nil
}

// TagIter is a closable iterator over a sequence of tags.
type TagIter struct {
	s    storer.EncodedObjectStorer
	iter storer.EncodedObjectIter
}

// NewTagIter returns a TagIter over the objects produced by iter.
func NewTagIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TagIter {
	return &TagIter{s, iter}
}

// Next decodes and returns the next tag, or io.EOF when exhausted.
func (iter *TagIter) Next() (*Tag, error) {
	obj, err := iter.iter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeTag(iter.s, obj)
}

// ForEach calls cb once per tag.
func (iter *TagIter) ForEach(cb func(*Tag) error) error {
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
func (iter *TagIter) Close() { iter.iter.Close() }

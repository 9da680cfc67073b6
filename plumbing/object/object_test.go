package object

import (
	"io"
	"testing"
	"time"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory storer.EncodedObjectStorer used only by
// this package's own tests, so they do not depend on storage/filesystem or
// external fixtures.
type memStore struct {
	objs map[plumbing.Hash]plumbing.EncodedObject
}

func newMemStore() *memStore {
	return &memStore{objs: make(map[plumbing.Hash]plumbing.EncodedObject)}
}

func (s *memStore) NewEncodedObject() plumbing.EncodedObject { return &plumbing.MemoryObject{} }

func (s *memStore) SetEncodedObject(o plumbing.EncodedObject) (plumbing.Hash, error) {
	s.objs[o.Hash()] = o
	return o.Hash(), nil
}

func (s *memStore) EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error) {
	o, ok := s.objs[h]
	if !ok || (t != plumbing.AnyObject && o.Type() != t) {
		return nil, plumbing.ErrObjectNotFound
	}
	return o, nil
}

func (s *memStore) IterEncodedObjects(t plumbing.ObjectType) (storer.EncodedObjectIter, error) {
	var series []plumbing.EncodedObject
	for _, o := range s.objs {
		if t == plumbing.AnyObject || o.Type() == t {
			series = append(series, o)
		}
	}
	return storer.NewEncodedObjectSliceIter(series), nil
}

func (s *memStore) HasEncodedObject(h plumbing.Hash) error {
	if _, ok := s.objs[h]; !ok {
		return plumbing.ErrObjectNotFound
	}
	return nil
}

func (s *memStore) EncodedObjectSize(h plumbing.Hash) (int64, error) {
	o, ok := s.objs[h]
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}
	return o.Size(), nil
}

func (s *memStore) put(t *testing.T, o *plumbing.MemoryObject) plumbing.Hash {
	t.Helper()
	h, err := s.SetEncodedObject(o)
	require.NoError(t, err)
	return h
}

func TestBlobRoundTrip(t *testing.T) {
	o := &plumbing.MemoryObject{}
	o.SetType(plumbing.BlobObject)
	w, err := o.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte("FOO"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	blob := &Blob{}
	require.NoError(t, blob.Decode(o))
	assert.Equal(t, int64(3), blob.Size)
	assert.Equal(t, "d96c7efbfec2814ae0301ad054dc8d9fc416c9b5", blob.Hash.String())

	r, err := blob.Reader()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "FOO", string(data))
}

func TestTreeDecodeEncode(t *testing.T) {
	blobObj := &plumbing.MemoryObject{}
	blobObj.SetType(plumbing.BlobObject)
	w, _ := blobObj.Writer()
	w.Write([]byte("hello\n"))
	w.Close()

	treeObj := &plumbing.MemoryObject{}
	treeObj.SetType(plumbing.TreeObject)
	tw, _ := treeObj.Writer()
	tw.Write([]byte("100644 hello.txt"))
	tw.Write([]byte{0})
	tw.Write(blobObj.Hash().Bytes())
	tw.Close()

	tree := &Tree{}
	require.NoError(t, tree.Decode(treeObj))
	require.Len(t, tree.Entries, 1)
	assert.Equal(t, "hello.txt", tree.Entries[0].Name)
	assert.Equal(t, blobObj.Hash(), tree.Entries[0].Hash)

	out := &plumbing.MemoryObject{}
	require.NoError(t, tree.Encode(out))
	out.Hash()
	treeObj.Hash()
	assert.Equal(t, treeObj.Hash(), out.Hash())
}

func TestCommitDecodeEncode(t *testing.T) {
	s := newMemStore()

	treeObj := &plumbing.MemoryObject{}
	treeObj.SetType(plumbing.TreeObject)
	s.put(t, treeObj)

	c := &Commit{
		TreeHash: treeObj.Hash(),
		Author:   Signature{Name: "A U Thor", Email: "author@example.com", When: time.Unix(1257894000, 0).UTC()},
		Message:  "initial commit\n",
	}
	c.Committer = c.Author

	encoded := &plumbing.MemoryObject{}
	require.NoError(t, c.Encode(encoded))
	encoded.Hash()

	decoded, err := DecodeCommit(s, encoded)
	require.NoError(t, err)
	assert.Equal(t, "A U Thor", decoded.Author.Name)
	assert.Equal(t, "author@example.com", decoded.Author.Email)
	assert.Equal(t, "initial commit\n", decoded.Message)
	assert.Equal(t, treeObj.Hash(), decoded.TreeHash)
}

func TestSignatureDecode(t *testing.T) {
	cases := map[string]Signature{
		`Foo Bar <foo@bar.com> 1257894000 +0100`: {
			Name: "Foo Bar", Email: "foo@bar.com",
			When: time.Unix(1257894000, 0).In(time.FixedZone("", 3600)),
		},
		`Foo Bar <> 1257894000 +0100`: {
			Name: "Foo Bar", Email: "",
			When: time.Unix(1257894000, 0).In(time.FixedZone("", 3600)),
		},
		`Foo Bar <foo@bar.com>`: {
			Name: "Foo Bar", Email: "foo@bar.com", When: time.Time{},
		},
		`><`: {},
		``:   {},
		`<`:  {},
	}

	for raw, exp := range cases {
		got := &Signature{}
		got.Decode([]byte(raw))
		assert.Equal(t, exp.Name, got.Name, raw)
		assert.Equal(t, exp.Email, got.Email, raw)
		assert.Equal(t, exp.When.Format(time.RFC3339), got.When.Format(time.RFC3339), raw)
	}
}

func TestTagDecodeEncode(t *testing.T) {
	s := newMemStore()

	target := &plumbing.MemoryObject{}
	target.SetType(plumbing.CommitObject)
	s.put(t, target)

	tag := &Tag{
		Name:       "v1.0.0",
		TargetType: plumbing.CommitObject,
		Target:     target.Hash(),
		Tagger:     Signature{Name: "Tagger", Email: "tagger@example.com", When: time.Unix(1257894000, 0).UTC()},
		Message:    "release\n",
	}

	encoded := &plumbing.MemoryObject{}
	require.NoError(t, tag.Encode(encoded))
	encoded.Hash()

	decoded, err := DecodeTag(s, encoded)
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", decoded.Name)
	assert.Equal(t, plumbing.CommitObject, decoded.TargetType)
	assert.Equal(t, target.Hash(), decoded.Target)
	assert.Equal(t, "release\n", decoded.Message)
}

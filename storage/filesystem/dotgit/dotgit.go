// Package dotgit reads and writes the on-disk .git directory layout: loose
// objects, packfiles and their indexes, loose and packed refs, and the repo
// config, the same structure the git CLI itself uses.
package dotgit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v6"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	formatcfg "github.com/awesome-os/universal-git-sub008/plumbing/format/config"
	"github.com/awesome-os/universal-git-sub008/utils/ioutil"
)

const (
	suffix       = ".git"
	packedRefsPath = "packed-refs"
	configPath     = "config"
	indexPath      = "index"
	shallowPath    = "shallow"
	modulePath     = "modules"
	objectsPath    = "objects"
	packPath       = "pack"
	refsPath       = "refs"

	packExt = ".pack"
	idxExt  = ".idx"
)

var (
	// ErrNotFound is returned when an object or ref is not found on disk.
	ErrNotFound = errors.New("object not found")
	// ErrIdxNotFound is returned when a packfile has no matching .idx.
	ErrIdxNotFound = errors.New("idx file not found")
	// ErrPackfileNotFound is returned when an .idx has no matching packfile.
	ErrPackfileNotFound = errors.New("packfile not found")
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrPackedRefsDuplicatedRef is returned for a corrupt packed-refs file
	// listing the same reference twice.
	ErrPackedRefsDuplicatedRef = errors.New("duplicated ref found in packed-ref file")
	// ErrPackedRefsBadFormat is returned for a malformed packed-refs line.
	ErrPackedRefsBadFormat = errors.New("malformed packed-ref")
	// ErrEmptyRefFile is returned when a loose ref file is empty, which
	// usually means the ref has been packed since it was last checked.
	ErrEmptyRefFile = errors.New("ref file is empty")
)

// Options customize how a DotGit is opened.
type Options struct {
	// ExclusiveAccess signals that the caller has exclusive control of the
	// repository and doesn't need to account for concurrent writers.
	ExclusiveAccess bool
	// KeepDescriptors makes packfile descriptors opened by this DotGit
	// remain open until Close is called, instead of being opened and
	// closed around each read.
	KeepDescriptors bool
	// AlternatesFS is used to resolve objects/info/alternates entries
	// instead of the DotGit's own filesystem, when set.
	AlternatesFS billy.Filesystem
	// ObjectFormat records the hash algorithm already committed to by an
	// existing repository config, if any.
	ObjectFormat formatcfg.ObjectFormat
}

// DotGit represents a single on-disk .git directory.
type DotGit struct {
	fs      billy.Filesystem
	options Options

	objectList []plumbing.Hash
	objectMap  map[plumbing.Hash]struct{}
	packList   []plumbing.Hash
	packMap    map[plumbing.Hash]struct{}
}

// New returns a DotGit backed by fs.
func New(fs billy.Filesystem) *DotGit {
	return NewWithOptions(fs, Options{})
}

// NewWithOptions returns a DotGit backed by fs, customized by o.
func NewWithOptions(fs billy.Filesystem, o Options) *DotGit {
	return &DotGit{fs: fs, options: o}
}

// Fs returns the underlying filesystem.
func (d *DotGit) Fs() billy.Filesystem { return d.fs }

// Close releases any cached state; safe to call even if nothing was cached.
func (d *DotGit) Close() error {
	d.objectList = nil
	d.objectMap = nil
	d.packList = nil
	d.packMap = nil
	return nil
}

// Initialize creates the directory skeleton (objects/, refs/heads,
// refs/tags) of an empty repository.
func (d *DotGit) Initialize() error {
	mustExist := []string{
		d.fs.Join(objectsPath, packPath),
		d.fs.Join(refsPath, "heads"),
		d.fs.Join(refsPath, "tags"),
	}

	for _, p := range mustExist {
		if err := d.fs.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// SetObjectFormat records the object format this DotGit should report via
// Options.ObjectFormat for future opens; it does not rewrite existing
// objects.
func (d *DotGit) SetObjectFormat(f formatcfg.ObjectFormat) error {
	d.options.ObjectFormat = f
	return nil
}

// Config returns a reader for the repository config file.
func (d *DotGit) Config() (billy.File, error) {
	f, err := d.fs.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return f, nil
}

// ConfigWriter returns a writer that overwrites the repository config file.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.Create(configPath)
}

// Module returns (creating if necessary) the submodule directory for name,
// under .git/modules.
func (d *DotGit) Module(name string) (billy.Filesystem, error) {
	return d.fs.Chroot(d.fs.Join(modulePath, name))
}

// -- objects ---------------------------------------------------------------

// NewObject returns a writer for a new loose object.
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	return newObjectWriter(d.fs)
}

// NewObjectPack returns a writer that builds a packfile (and its index) as
// bytes are written to it.
func (d *DotGit) NewObjectPack() (*PackWriter, error) {
	return newPackWrite(d.fs)
}

// Object returns a reader for the loose object with hash h.
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	hex := h.String()
	path := d.fs.Join(objectsPath, hex[0:2], hex[2:h.HexSize()])
	return d.fs.Open(path)
}

// ObjectStat returns file info for the loose object with hash h.
func (d *DotGit) ObjectStat(h plumbing.Hash) (os.FileInfo, error) {
	hex := h.String()
	path := d.fs.Join(objectsPath, hex[0:2], hex[2:h.HexSize()])
	return d.fs.Stat(path)
}

// ObjectDelete removes the loose object with hash h.
func (d *DotGit) ObjectDelete(h plumbing.Hash) error {
	hex := h.String()
	path := d.fs.Join(objectsPath, hex[0:2], hex[2:h.HexSize()])
	return d.fs.Remove(path)
}

// Objects returns the hash of every loose object on disk.
func (d *DotGit) Objects() ([]plumbing.Hash, error) {
	var hashes []plumbing.Hash
	err := d.ForEachObjectHash(func(h plumbing.Hash) error {
		hashes = append(hashes, h)
		return nil
	})
	return hashes, err
}

// ObjectsWithPrefix returns the hash of every loose object whose hex
// encoding starts with prefix.
func (d *DotGit) ObjectsWithPrefix(prefix []byte) ([]plumbing.Hash, error) {
	hex := fmt.Sprintf("%x", prefix)

	var hashes []plumbing.Hash
	err := d.ForEachObjectHash(func(h plumbing.Hash) error {
		if strings.HasPrefix(h.String(), hex) {
			hashes = append(hashes, h)
		}
		return nil
	})
	return hashes, err
}

// ForEachObjectHash calls fun once per loose object hash found under
// objects/, in no particular order.
func (d *DotGit) ForEachObjectHash(fun func(plumbing.Hash) error) error {
	files, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, dir := range files {
		if !dir.IsDir() || len(dir.Name()) != 2 {
			continue
		}

		entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, dir.Name()))
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}

			h := plumbing.NewHash(dir.Name() + e.Name())
			if h.IsZero() {
				continue
			}

			if err := fun(h); err != nil {
				return err
			}
		}
	}

	return nil
}

// -- packfiles ---------------------------------------------------------------

// ObjectPacks returns the hash of every packfile under objects/pack.
func (d *DotGit) ObjectPacks() ([]plumbing.Hash, error) {
	packDir := d.fs.Join(objectsPath, packPath)
	files, err := d.fs.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var hashes []plumbing.Hash
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), idxExt) {
			continue
		}

		n := strings.TrimSuffix(strings.TrimPrefix(f.Name(), "pack-"), idxExt)
		h := plumbing.NewHash(n)
		if !h.IsZero() {
			hashes = append(hashes, h)
		}
	}

	return hashes, nil
}

// ObjectPack returns a reader for the packfile with hash h.
func (d *DotGit) ObjectPack(h plumbing.Hash) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", h, packExt))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}
	return f, nil
}

// ObjectPackIdx returns a reader for the idx file of the packfile with hash h.
func (d *DotGit) ObjectPackIdx(h plumbing.Hash) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", h, idxExt))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdxNotFound
		}
		return nil, err
	}
	return f, nil
}

// DeleteOldObjectPackAndIndex removes the packfile and idx for hash h,
// discarding the .keep check: t is accepted for signature parity with
// implementations that honor a time-based grace period, but is unused here.
func (d *DotGit) DeleteOldObjectPackAndIndex(h plumbing.Hash, t interface{}) error {
	base := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s", h))
	_ = d.fs.Remove(base + idxExt)
	return d.fs.Remove(base + packExt)
}

// -- alternates ---------------------------------------------------------------

const alternatesPath = "objects/info/alternates"

// Alternates returns a DotGit for every repository listed in
// objects/info/alternates.
func (d *DotGit) Alternates() ([]*DotGit, error) {
	f, err := d.fs.Open(alternatesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var alternates []*DotGit
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fs, err := d.fs.Chroot(line)
		if err != nil {
			return nil, err
		}

		alternates = append(alternates, New(fs))
	}

	return alternates, s.Err()
}

// AddAlternate appends remote to objects/info/alternates.
func (d *DotGit) AddAlternate(remote string) error {
	if err := d.fs.MkdirAll(d.fs.Join(objectsPath, "info"), 0o755); err != nil {
		return err
	}

	f, err := d.fs.OpenFile(alternatesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintln(f, remote)
	return err
}

// -- references ---------------------------------------------------------------

// Refs returns every reference in the repository: HEAD, loose refs under
// refs/, and packed refs.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	if err := d.addRefFromHEAD(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefsFromRefDir(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefsFromPackedRefs(&refs, seen); err != nil {
		return nil, err
	}

	return refs, nil
}

// CountLooseRefs returns the number of references found as loose files
// under refs/ and HEAD, not counting anything only present in packed-refs.
func (d *DotGit) CountLooseRefs() (int, error) {
	var loose []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	if err := d.addRefFromHEAD(&loose, seen); err != nil {
		return 0, err
	}

	if err := d.addRefsFromRefDir(&loose, seen); err != nil {
		return 0, err
	}

	return len(loose), nil
}

// Ref returns the single reference named n.
func (d *DotGit) Ref(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.readLooseRef(n)
	if err == nil {
		return ref, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	refs, err := d.findPackedRefs()
	if err != nil {
		return nil, err
	}

	for _, r := range refs {
		if r.Name() == n {
			return r, nil
		}
	}

	return nil, plumbing.ErrReferenceNotFound
}

// SetRef writes ref, optionally checking that the existing value of ref is
// old first.
func (d *DotGit) SetRef(ref, old *plumbing.Reference) error {
	content := ref.Strings()[1] + "\n"
	fileName := ref.Name().String()
	return d.setRef(fileName, content, old)
}

// RemoveRef deletes the loose ref n, and removes it from packed-refs if
// present there.
func (d *DotGit) RemoveRef(n plumbing.ReferenceName) error {
	path := n.String()
	err := d.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return d.rewritePackedRefsWithoutRef(n)
}

func (d *DotGit) readLooseRef(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	f, err := d.fs.Open(n.String())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.readReferenceFrom(f, n.String())
}

func (d *DotGit) readReferenceFrom(r io.Reader, name string) (*plumbing.Reference, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, ErrEmptyRefFile
	}

	if strings.HasPrefix(line, "ref: ") {
		return plumbing.NewSymbolicReference(plumbing.ReferenceName(name),
			plumbing.ReferenceName(strings.TrimPrefix(line, "ref: "))), nil
	}

	return plumbing.NewReferenceFromStrings(name, line), nil
}

func (d *DotGit) addRefFromHEAD(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	ref, err := d.readLooseRef(plumbing.HEAD)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, ErrEmptyRefFile) {
			return nil
		}
		return err
	}

	*refs = append(*refs, ref)
	seen[ref.Name()] = true
	return nil
}

func (d *DotGit) addRefsFromRefDir(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	return d.walkReferencesTree(refs, seen, refsPath)
}

func (d *DotGit) walkReferencesTree(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool, relPath string) error {
	files, err := d.fs.ReadDir(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, f := range files {
		newRelPath := d.fs.Join(relPath, f.Name())
		if f.IsDir() {
			if err := d.walkReferencesTree(refs, seen, newRelPath); err != nil {
				return err
			}
			continue
		}

		ref, err := d.readLooseRef(plumbing.ReferenceName(newRelPath))
		if err != nil {
			if os.IsNotExist(err) || errors.Is(err, ErrEmptyRefFile) {
				continue
			}
			return err
		}

		*refs = append(*refs, ref)
		seen[ref.Name()] = true
	}

	return nil
}

func (d *DotGit) addRefsFromPackedRefs(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	packed, err := d.findPackedRefs()
	if err != nil {
		return err
	}

	for _, ref := range packed {
		if seen[ref.Name()] {
			continue
		}
		*refs = append(*refs, ref)
		seen[ref.Name()] = true
	}

	return nil
}

// findPackedRefs reads and parses the packed-refs file, returning nil
// (without error) if it doesn't exist.
func (d *DotGit) findPackedRefs() ([]*plumbing.Reference, error) {
	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return d.findPackedRefsInFile(f)
}

func (d *DotGit) findPackedRefsInFile(f io.Reader) ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if line == "" {
			continue
		}

		switch line[0] {
		case '#': // header comment
			continue
		case '^': // peeled value of the previous tag; skip it
			continue
		default:
			ws := strings.Fields(line)
			if len(ws) != 2 {
				return nil, ErrPackedRefsBadFormat
			}

			refs = append(refs, plumbing.NewReferenceFromStrings(ws[1], ws[0]))
		}
	}

	return refs, s.Err()
}

// openAndLockPackedRefs opens packed-refs, creating it first if mustExist is
// false and it doesn't exist yet. The caller is responsible for locking and
// closing the returned file.
func (d *DotGit) openAndLockPackedRefs(mustExist bool) (billy.File, error) {
	f, err := d.fs.OpenFile(packedRefsPath, d.openAndLockPackedRefsMode(), 0o666)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil, nil
		}
		return nil, err
	}

	if err := f.Lock(); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// rewritePackedRefsWithoutRef rewrites packed-refs omitting name, a no-op if
// packed-refs doesn't exist or doesn't contain name.
func (d *DotGit) rewritePackedRefsWithoutRef(name plumbing.ReferenceName) error {
	pr, err := d.openAndLockPackedRefs(false)
	if err != nil {
		return err
	}
	if pr == nil {
		return nil
	}
	defer ioutil.CheckClose(pr, &err)

	return d.rewritePackedRefsWithoutRefWhileLocked(pr, name)
}

func (d *DotGit) rewritePackedRefsWithoutRefWhileLocked(pr billy.File, name plumbing.ReferenceName) (err error) {
	refs, err := d.findPackedRefsInFile(pr)
	if err != nil {
		return err
	}

	var kept []*plumbing.Reference
	found := false
	for _, ref := range refs {
		if ref.Name() == name {
			found = true
			continue
		}
		kept = append(kept, ref)
	}

	if !found {
		return nil
	}

	tmp, err := d.fs.TempFile("", "packed-refs")
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(tmp, &err)

	for _, ref := range kept {
		if _, err := fmt.Fprintf(tmp, "%s %s\n", ref.Hash(), ref.Name()); err != nil {
			return err
		}
	}

	return d.rewritePackedRefsWhileLocked(tmp, pr)
}

// checkReferenceAndTruncate verifies that f currently holds old (if
// non-nil), leaving the file position at the start ready for a fresh write.
// Returns ErrEmptyRefFile if the file is empty (the ref may have since been
// packed).
func (d *DotGit) checkReferenceAndTruncate(f billy.File, old *plumbing.Reference) error {
	if old != nil {
		ref, err := d.readReferenceFrom(f, old.Name().String())
		if err != nil {
			if errors.Is(err, ErrEmptyRefFile) {
				return err
			}
			return err
		}

		if ref.Hash() != old.Hash() {
			return plumbing.ErrReferenceNotFound
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return f.Truncate(0)
}

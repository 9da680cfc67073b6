package plumbing

import (
	"errors"
	"fmt"
	"strings"
)

// HEAD is the name of the repository's current-branch pointer.
const HEAD ReferenceName = "HEAD"

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	refNotePrefix   = refPrefix + "notes/"
)

// ReferenceName is a ref's path, e.g. "refs/heads/main" or "HEAD".
type ReferenceName string

// ErrInvalidReferenceName is returned by Validate for a name that does not
// match the ref grammar (§3: `refs/[A-Za-z0-9._/-]+` plus HEAD, with the
// usual Git exclusions below).
var ErrInvalidReferenceName = errors.New("invalid reference name")

// ErrReferenceNotFound is returned when a reference is looked up by name and
// no ref (loose, packed, or symbolic target) resolves it.
var ErrReferenceNotFound = errors.New("reference not found")

// Validate checks n against Git's reference-name grammar: ASCII only, no
// empty path components, no leading/trailing/adjacent dots in a
// component, no control characters or the set `space ~ ^ : ? * [ \`, no
// trailing ".lock", and no component beginning with '-'. HEAD is always
// valid.
func (n ReferenceName) Validate() error {
	s := string(n)
	if s == string(HEAD) {
		return nil
	}
	if !strings.HasPrefix(s, refPrefix) || s == refPrefix {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}

	restrictedPrefix := strings.HasPrefix(s, refHeadPrefix) || strings.HasPrefix(s, refTagPrefix)

	parts := strings.Split(s, "/")
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if part == "." || part == ".." || part == "@" {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if strings.Contains(part, "..") || strings.Contains(part, "@{") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if restrictedPrefix && i == len(parts)-1 && strings.HasPrefix(part, "-") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if strings.HasSuffix(part, ".lock") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		for _, r := range part {
			if r <= 0x1f || r == 0x7f {
				return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
			}
			switch r {
			case ' ', '~', '^', ':', '?', '*', '[', '\\':
				return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
			}
		}
		if part == "@" {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
		if strings.Contains(part, "@{") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}
	return nil
}

// String returns n unchanged; defined so ReferenceName satisfies
// fmt.Stringer and can be used directly as a map key or path segment.
func (n ReferenceName) String() string { return string(n) }

// Short returns the name with any refs/heads|tags|remotes|notes prefix
// stripped, mirroring `git rev-parse --abbrev-ref`.
func (n ReferenceName) Short() string {
	s := string(n)
	res := s
	for _, prefix := range []string{
		refHeadPrefix, refTagPrefix, refRemotePrefix, refNotePrefix, refPrefix,
	} {
		if strings.HasPrefix(s, prefix) {
			res = strings.TrimPrefix(s, prefix)
			break
		}
	}
	return res
}

// IsBranch reports whether n is under refs/heads/.
func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), refHeadPrefix) }

// IsNote reports whether n is under refs/notes/.
func (n ReferenceName) IsNote() bool { return strings.HasPrefix(string(n), refNotePrefix) }

// IsRemote reports whether n is under refs/remotes/.
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), refRemotePrefix) }

// IsTag reports whether n is under refs/tags/.
func (n ReferenceName) IsTag() bool { return strings.HasPrefix(string(n), refTagPrefix) }

// NewBranchReferenceName builds "refs/heads/<name>".
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewNoteReferenceName builds "refs/notes/<name>".
func NewNoteReferenceName(name string) ReferenceName {
	return ReferenceName(refNotePrefix + name)
}

// NewRemoteReferenceName builds "refs/remotes/<remote>/<name>".
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

// NewRemoteHEADReferenceName builds "refs/remotes/<remote>/HEAD".
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/HEAD")
}

// NewTagReferenceName builds "refs/tags/<name>".
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

// ReferenceType distinguishes a direct (hash) reference from a symbolic
// one.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

func (r ReferenceType) String() string {
	switch r {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

// Reference is a named pointer to either an OID (a "hash reference") or
// another ReferenceName (a "symbolic reference").
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewReferenceFromStrings builds a Reference from a ref name and its raw
// loose-file content: "ref: <target>" for a symbolic ref, or a bare hex
// OID otherwise.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)
	if strings.HasPrefix(target, "ref: ") {
		return NewSymbolicReference(n, ReferenceName(strings.TrimPrefix(target, "ref: ")))
	}
	return NewHashReference(n, NewHash(target))
}

// NewSymbolicReference builds a symbolic reference n -> target.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{t: SymbolicReference, n: n, target: target}
}

// NewHashReference builds a direct reference n -> h.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{t: HashReference, n: n, h: h}
}

// Type reports whether this is a hash or symbolic reference.
func (r *Reference) Type() ReferenceType {
	if r == nil {
		return InvalidReference
	}
	return r.t
}

// Name returns the reference's own name.
func (r *Reference) Name() ReferenceName {
	if r == nil {
		return ""
	}
	return r.n
}

// Hash returns the pointed-to OID; only meaningful for HashReference.
func (r *Reference) Hash() Hash {
	if r == nil {
		return ZeroHash
	}
	return r.h
}

// Target returns the pointed-to ref name; only meaningful for
// SymbolicReference.
func (r *Reference) Target() ReferenceName {
	if r == nil {
		return ""
	}
	return r.target
}

// Strings renders the (name, content) pair as they would be written to a
// loose ref file.
func (r *Reference) Strings() [2]string {
	var s [2]string
	s[0] = r.Name().String()
	if r.Type() == SymbolicReference {
		s[1] = "ref: " + r.Target().String()
		return s
	}
	s[1] = r.Hash().String()
	return s
}

func (r *Reference) String() string {
	switch r.Type() {
	case HashReference:
		return r.Hash().String()
	case SymbolicReference:
		return "ref: " + r.Target().String()
	default:
		return ""
	}
}

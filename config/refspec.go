package config

import (
	"errors"
	"strings"

	"github.com/awesome-os/universal-git-sub008/plumbing"
)

const (
	refSpecWildcard  = "*"
	refSpecForce     = "+"
	refSpecSeparator = ":"
)

// ErrRefSpecMalformedSeparator is returned when a refspec has no or more
// than one separator.
var ErrRefSpecMalformedSeparator = errors.New("malformed refspec, separators are wrong")

// ErrRefSpecMalformedWildcard is returned when the number of wildcards in
// the src and dst side of a refspec don't match.
var ErrRefSpecMalformedWildcard = errors.New("malformed refspec, mismatched number of wildcards")

// RefSpec is a mapping from local branches to remote references, the
// format of the refspec is an optional +, followed by <src>:<dst>, where
// <src> is the pattern for references on the remote side and <dst> is
// where those references will be written locally. The + tells Git to
// update the reference even if it isn't a fast-forward.
//
// eg.: "+refs/heads/*:refs/remotes/origin/*"
//
// https://git-scm.com/book/en/v2/Git-Internals-The-Refspec
type RefSpec string

// IsValid validates the RefSpec.
func (s RefSpec) IsValid() bool {
	spec := string(s)
	if strings.Count(spec, refSpecSeparator) != 1 {
		return false
	}

	sep := strings.Index(spec, refSpecSeparator)
	if sep == len(spec)-1 && !s.IsDelete() {
		return false
	}

	ws := strings.Count(s.src(), refSpecWildcard)
	wd := strings.Count(s.dst(), refSpecWildcard)
	return ws == wd && ws < 2 && wd < 2
}

// Validate validates the RefSpec, returning ErrRefSpecMalformedSeparator or
// ErrRefSpecMalformedWildcard when it is not valid.
func (s RefSpec) Validate() error {
	spec := string(s)
	if strings.Count(spec, refSpecSeparator) != 1 {
		return ErrRefSpecMalformedSeparator
	}

	sep := strings.Index(spec, refSpecSeparator)
	if sep == len(spec)-1 && !s.IsDelete() {
		return ErrRefSpecMalformedSeparator
	}

	if !s.IsValid() {
		return ErrRefSpecMalformedWildcard
	}

	return nil
}

// IsForceUpdate returns if update is allowed in non fast-forward merges.
func (s RefSpec) IsForceUpdate() bool {
	return len(s) > 0 && s[0] == refSpecForce[0]
}

// IsDelete returns true if the RefSpec has an empty src, meaning the
// destination reference should be deleted.
func (s RefSpec) IsDelete() bool {
	return s.src() == ""
}

// IsWildcard returns if the RefSpec contains wildcards.
func (s RefSpec) IsWildcard() bool {
	return strings.Contains(string(s), refSpecWildcard)
}

// IsExactSHA1 returns true if the src side of the RefSpec is a 40-character
// hex object id rather than a reference name or pattern, eg.
// "0123456789012345678901234567890123456789:refs/heads/master".
func (s RefSpec) IsExactSHA1() bool {
	return plumbing.IsHash(s.src())
}

// Src returns the src side of the RefSpec.
func (s RefSpec) Src() string {
	return s.src()
}

func (s RefSpec) src() string {
	spec := string(s)
	if s.IsForceUpdate() {
		spec = spec[1:]
	}

	sep := strings.Index(spec, refSpecSeparator)
	if sep == -1 {
		return spec
	}

	return spec[:sep]
}

func (s RefSpec) dst() string {
	spec := string(s)
	sep := strings.Index(spec, refSpecSeparator)
	if sep == -1 {
		return ""
	}

	return spec[sep+1:]
}

// Match matches the given plumbing.ReferenceName against the src side of
// the RefSpec.
func (s RefSpec) Match(n plumbing.ReferenceName) bool {
	if !s.IsWildcard() {
		return s.matchExact(n)
	}

	return s.matchGlob(n)
}

func (s RefSpec) matchExact(n plumbing.ReferenceName) bool {
	return s.src() == n.String()
}

func (s RefSpec) matchGlob(n plumbing.ReferenceName) bool {
	src := s.src()
	name := n.String()
	wildcard := strings.Index(src, refSpecWildcard)

	prefix := src[0:wildcard]
	suffix := src[wildcard+1:]

	return len(name) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(name, prefix) &&
		strings.HasSuffix(name, suffix)
}

// Dst returns the destination for the given remote reference, substituting
// any wildcard in the dst side with whatever n matched on the src side.
func (s RefSpec) Dst(n plumbing.ReferenceName) plumbing.ReferenceName {
	dst := s.dst()
	if !s.IsWildcard() {
		return plumbing.ReferenceName(dst)
	}

	src := s.src()
	name := n.String()
	ws := strings.Index(src, refSpecWildcard)
	wd := strings.Index(dst, refSpecWildcard)
	match := name[ws : len(name)-(len(src)-(ws+1))]

	return plumbing.ReferenceName(dst[0:wd] + match + dst[wd+1:])
}

// Reverse returns a new RefSpec with the src and dst fields reversed, used
// to map remote-tracking refs back onto their remote counterparts (eg.
// when pruning).
func (s RefSpec) Reverse() RefSpec {
	spec := string(s)
	var force string
	if s.IsForceUpdate() {
		force = refSpecForce
		spec = spec[1:]
	}

	parts := strings.SplitN(spec, refSpecSeparator, 2)
	if len(parts) != 2 {
		return s
	}

	return RefSpec(force + parts[1] + refSpecSeparator + parts[0])
}

func (s RefSpec) String() string {
	return string(s)
}

// MatchAny returns true if any of the RefSpecs match the given
// plumbing.ReferenceName.
func MatchAny(l []RefSpec, n plumbing.ReferenceName) bool {
	for _, r := range l {
		if r.Match(n) {
			return true
		}
	}

	return false
}

// Package filemode defines the octal file-mode values Git stores for tree
// entries and index entries (§3, §6 of the design: mode is restricted to
// {100644, 100755, 120000, 040000, 160000} for entries the engine writes,
// but reads are permissive since foreign tools may have written others).
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// FileMode is a Git tree-entry or index-entry mode, stored as the raw
// octal value (e.g. 0o100644), not an os.FileMode bit pattern.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New parses the ASCII octal representation used in tree entries and
// packfile codecs. Leading zeros are tolerated (trees pad to 6 digits;
// some tools emit fewer or more).
func New(s string) (FileMode, error) {
	if len(s) == 0 || s[0] == '+' || s[0] == '-' {
		return Empty, fmt.Errorf("filemode: invalid mode %q", s)
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("filemode: invalid mode %q: %w", s, err)
	}
	return FileMode(n), nil
}

// String renders the mode as seven zero-padded octal digits; tree encoding
// strips the leading zeros.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// Bytes returns the mode as four little-endian bytes.
func (m FileMode) Bytes() []byte {
	return []byte{byte(m), byte(m >> 8), byte(m >> 16), byte(m >> 24)}
}

// IsRegular reports whether m is a regular (non-executable) file.
func (m FileMode) IsRegular() bool { return m == Regular || m == Deprecated }

// IsFile reports whether m is a regular file, an executable or a symlink.
func (m FileMode) IsFile() bool {
	return m == Regular || m == Deprecated || m == Executable || m == Symlink
}

// IsMalformed reports whether m is not one of the six recognized non-empty
// values.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// ToOSFileMode converts to the nearest os.FileMode, for materializing
// onto a working tree.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir, Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	case Executable:
		return 0o755, nil
	case Regular, Deprecated:
		return 0o644, nil
	default:
		return 0, fmt.Errorf("filemode: malformed mode %s", m)
	}
}

// NewFromOSFileMode infers the closest Git mode for a working-tree file.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	switch {
	case m.IsDir():
		return Dir, nil
	case m&os.ModeSymlink != 0:
		return Symlink, nil
	case m&(os.ModeSocket|os.ModeNamedPipe|os.ModeDevice|os.ModeCharDevice|os.ModeTemporary) != 0:
		return Empty, fmt.Errorf("filemode: no equivalent git mode for %v", m)
	case m&0o111 != 0:
		return Executable, nil
	default:
		return Regular, nil
	}
}

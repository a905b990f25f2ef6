// Package version provides client version parsing and comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the client version reported in the handshake envelope.
const Current = "0.3.0"

// Version represents a parsed "major.minor.patch" version.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Parse parses a "major.minor.patch" version string. The patch component
// may be omitted.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor[.patch]", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	var patch uint64
	if len(parts) == 3 {
		patch, err = strconv.ParseUint(parts[2], 10, 16)
		if err != nil || parts[2] == "" {
			return Version{}, fmt.Errorf("invalid version %q: bad patch component", s)
		}
	}

	return Version{Major: uint16(major), Minor: uint16(minor), Patch: uint16(patch)}, nil
}

// String returns the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible returns true if the other version speaks the same protocol.
// Pre-1.0 versions are compatible when major and minor match; from 1.0 on
// the major version alone decides.
func (v Version) Compatible(other Version) bool {
	if v.Major == 0 || other.Major == 0 {
		return v.Major == other.Major && v.Minor == other.Minor
	}
	return v.Major == other.Major
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmp(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmp(v.Minor, other.Minor)
	}
	return cmp(v.Patch, other.Patch)
}

func cmp(a, b uint16) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Package version implements the release version arithmetic and the tag
// checks used to classify release events.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a version string is not a prefixed
// major.minor.patch triple or an operation would produce a negative component.
var ErrInvalidVersion = errors.New("invalid version")

// Version represents a prefixed semantic version such as "v1.2.3".
type Version struct {
	Prefix string // Leading non-numeric text, e.g., "v" or "vrs"
	Major  int
	Minor  int
	Patch  int
}

// Parse parses a version string into a Version. The prefix is every
// character before the first digit and is preserved verbatim.
func Parse(v string) (Version, error) {
	idx := strings.IndexFunc(v, isDigit)
	if idx < 0 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	ver := Version{Prefix: v[:idx]}

	parts := strings.Split(v[idx:], ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q must have three components", ErrInvalidVersion, v)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, v, err)
		}
		nums[i] = n
	}
	ver.Major, ver.Minor, ver.Patch = nums[0], nums[1], nums[2]

	return ver, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(v string) Version {
	ver, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return ver
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty component")
	}
	for _, ch := range s {
		if !isDigit(ch) {
			return 0, fmt.Errorf("non-numeric component %q", s)
		}
	}
	return strconv.Atoi(s)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// String returns the version as a string.
func (v Version) String() string {
	return fmt.Sprintf("%s%d.%d.%d", v.Prefix, v.Major, v.Minor, v.Patch)
}

// ReleaseLine returns the major.minor portion without the prefix.
func (v Version) ReleaseLine() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsMajor reports whether the patch component is zero.
func (v Version) IsMajor() bool {
	return v.Patch == 0
}

// BumpPatch increments the patch version.
func (v Version) BumpPatch() Version {
	v.Patch++
	return v
}

// BumpMinor increments the minor version. The patch component is kept.
func (v Version) BumpMinor() Version {
	v.Minor++
	return v
}

// DecrementPatch decrements the patch version.
func (v Version) DecrementPatch() (Version, error) {
	if v.Patch == 0 {
		return Version{}, fmt.Errorf("%w: no patch before %s", ErrInvalidVersion, v)
	}
	v.Patch--
	return v, nil
}

// NextPatch returns the next patch version from the current version string.
func NextPatch(current string) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}
	return v.BumpPatch().String(), nil
}

// NextMinor returns the next minor version from the current version string,
// e.g., "vrs10.5.8" -> "vrs10.6.8".
func NextMinor(current string) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}
	return v.BumpMinor().String(), nil
}

// PreviousPatch returns the previous patch version from the current version string.
func PreviousPatch(current string) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}
	prev, err := v.DecrementPatch()
	if err != nil {
		return "", err
	}
	return prev.String(), nil
}

// FromBranch extracts the version token from a branch reference. When ref
// contains branchType, the last path segment is returned, otherwise ref is
// returned unchanged:
//
//	FromBranch("refs/heads/release/10.0", "release") == "10.0"
//	FromBranch("refs/heads/test", "release") == "refs/heads/test"
func FromBranch(ref, branchType string) string {
	if !strings.Contains(ref, branchType) {
		return ref
	}
	segments := strings.Split(ref, "/")
	return segments[len(segments)-1]
}

// PreviousReleaseLine returns the release line preceding line within the
// same major version, e.g., "10.1" -> "10.0". It returns false when line is
// not a major.minor pair or its minor component is zero.
func PreviousReleaseLine(line string) (string, bool) {
	major, minor, ok := strings.Cut(line, ".")
	if !ok {
		return "", false
	}
	ma, err := parseComponent(major)
	if err != nil {
		return "", false
	}
	mi, err := parseComponent(minor)
	if err != nil || mi == 0 {
		return "", false
	}
	return fmt.Sprintf("%d.%d", ma, mi-1), true
}

package plugins

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionPattern accepts MAJOR.MINOR.PATCH with an optional pre-release or
// build suffix. Only the numeric core participates in comparison.
var versionPattern = regexp.MustCompile(
	`^(\d+)\.(\d+)\.(\d+)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`,
)

// Version is a parsed semantic version, pre-release suffix already stripped.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a semantic version string.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, ErrVersionInvalid
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, fmt.Errorf("%w: major: %v", ErrVersionInvalid, err)
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Version{}, fmt.Errorf("%w: minor: %v", ErrVersionInvalid, err)
	}
	patch, err := strconv.Atoi(m[3])
	if err != nil {
		return Version{}, fmt.Errorf("%w: patch: %v", ErrVersionInvalid, err)
	}

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// Compare returns -1, 0, or 1 comparing v against o component-wise.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	case v.Minor != o.Minor:
		return sign(v.Minor - o.Minor)
	case v.Patch != o.Patch:
		return sign(v.Patch - o.Patch)
	default:
		return 0
	}
}

// String renders the numeric core.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func sign(n int) int {
	if n < 0 {
		return -1
	}

	return 1
}

// CheckHostCompatibility verifies the host version against a plugin's declared
// bounds. Bounds are inclusive; absent bounds impose no constraint. Metadata
// validation already guaranteed the bound strings parse.
func CheckHostCompatibility(host Version, hostRaw string, meta *Metadata) *VersionIncompatibleError {
	incompatible := func() *VersionIncompatibleError {
		return &VersionIncompatibleError{
			Plugin: meta.Name,
			Host:   hostRaw,
			Min:    meta.MinHostVersion,
			Max:    meta.MaxHostVersion,
		}
	}

	if meta.MinHostVersion != "" {
		min, err := ParseVersion(meta.MinHostVersion)
		if err != nil || host.Compare(min) < 0 {
			return incompatible()
		}
	}
	if meta.MaxHostVersion != "" {
		max, err := ParseVersion(meta.MaxHostVersion)
		if err != nil || host.Compare(max) > 0 {
			return incompatible()
		}
	}

	return nil
}

// Package kernelver reimplements the teacher's pkg/kernel version-probe
// surface (GetKernelVersion/CompareKernelVersion/VersionInfo) as a
// self-contained package over golang.org/x/sys/unix.Uname, rather than
// importing github.com/docker/docker/pkg/parsers/kernel as the teacher
// does: the teacher's own in-tree pkg/kernel already calls
// ParseRelease/VersionInfo/CompareKernelVersion without importing
// anything that defines them, so that vendoring was dead weight even
// there (see DESIGN.md). Here it is repurposed from "which tcp_info
// layout does this kernel use" to "should the rule manager expect
// xt_u32/nft payload-match support".
package kernelver

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionInfo holds a parsed "major.minor.patch"-shaped kernel release
// string, e.g. "6.8.0-49-generic" -> {6, 8, 0}.
type VersionInfo struct {
	Major int
	Minor int
	Patch int
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseRelease parses the release field of a uname(2) call, tolerating
// trailing distro suffixes like "-49-generic".
func ParseRelease(release string) (*VersionInfo, error) {
	fields := strings.SplitN(release, "-", 2)
	parts := strings.Split(fields[0], ".")

	v := VersionInfo{}
	nums := [3]*int{&v.Major, &v.Minor, &v.Patch}
	for i := 0; i < len(nums); i++ {
		if i >= len(parts) {
			break
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return nil, fmt.Errorf("kernelver: malformed release %q: %w", release, err)
		}
		*nums[i] = n
	}
	return &v, nil
}

// CompareKernelVersion returns -1, 0, or 1 as a compares before, equal
// to, or after b, ordering by Major, then Minor, then Patch.
func CompareKernelVersion(a, b VersionInfo) int {
	switch {
	case a.Major != b.Major:
		return cmp(a.Major, b.Major)
	case a.Minor != b.Minor:
		return cmp(a.Minor, b.Minor)
	default:
		return cmp(a.Patch, b.Patch)
	}
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

//go:build linux || freebsd || openbsd || darwin || netbsd || dragonfly

package kernelver

import "golang.org/x/sys/unix"

// GetKernelVersion gets the current kernel release, following the same
// uname-based approach as the teacher's pkg/kernel/kernel_unix.go.
func GetKernelVersion() (*VersionInfo, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, err
	}
	return ParseRelease(unix.ByteSliceToString(uts.Release[:]))
}

// CheckKernelVersion reports whether the running kernel is >= the
// given major.minor.
func CheckKernelVersion(major, minor int) (bool, error) {
	v, err := GetKernelVersion()
	if err != nil {
		return false, err
	}
	return CompareKernelVersion(*v, VersionInfo{Major: major, Minor: minor}) >= 0, nil
}

//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package privilege

import "golang.org/x/sys/unix"

// Check verifies the process is running as root.
func Check() error {
	if unix.Geteuid() != 0 {
		return ErrInsufficientPrivilege
	}
	return nil
}

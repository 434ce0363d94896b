//go:build windows

package privilege

import "golang.org/x/sys/windows"

// Check verifies the process token is elevated, the Windows analogue
// of the teacher's per-platform build-tag split (pkg/tcpinfo/
// tcpinfo_windows.go uses the same syscall-package-direct style for
// low-level Windows access this file follows).
func Check() error {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token); err != nil {
		return err
	}
	defer token.Close()

	if !token.IsElevated() {
		return ErrInsufficientPrivilege
	}
	return nil
}

// Package privilege implements the §7 PrivilegeError check: the
// daemon must run with the capability to open raw sockets / a kernel
// packet queue (Linux) or the WinDivert driver (Windows), which in
// practice means root or Administrator.
package privilege

import "errors"

// ErrInsufficientPrivilege is returned by Check when the process does
// not hold the required privilege. Callers exit with code 3 on this
// error (§6).
var ErrInsufficientPrivilege = errors.New("privilege: insufficient privilege (must be root/admin)")

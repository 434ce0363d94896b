//go:build windows

package rules

// WindowsManager is a no-op: WinDivert's filter string compiled into
// internal/capture.CaptureFilter IS the capture predicate, so there is
// no separate kernel-rule install/teardown step. FastPathAvailable
// stays false (§4.7's degraded-predicate branch): there is no
// in-kernel ClientHello byte-match on this platform, so §4.6 always
// runs the slow-path detector.
type WindowsManager struct{}

func NewWindowsManager() *WindowsManager { return &WindowsManager{} }

// New ignores cfg: see WindowsManager's doc comment.
func New(cfg Config) Manager { return NewWindowsManager() }

func (WindowsManager) Install() error { return nil }
func (WindowsManager) Cleanup() error { return nil }

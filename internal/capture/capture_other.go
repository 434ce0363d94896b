//go:build !linux && !windows

package capture

import (
	"context"
	"fmt"
	"runtime"
)

// unsupportedCapability exists only so the package type-checks on
// platforms neither backend targets; New returns an error at runtime,
// matching the teacher's tcpinfo_other.go idiom of a same-shaped stub
// that fails at the call site rather than at build time.
type unsupportedCapability struct{}

func New(ctx context.Context, queueNum uint16) (Capability, error) {
	return nil, fmt.Errorf("capture: %s is unsupported", runtime.GOOS)
}

func (unsupportedCapability) Pull(ctx context.Context) ([]byte, any, error) {
	return nil, nil, fmt.Errorf("capture: %s is unsupported", runtime.GOOS)
}

func (unsupportedCapability) Verdict(any, Verdict) error { return nil }
func (unsupportedCapability) Send([]byte) error          { return nil }
func (unsupportedCapability) Close() error               { return nil }

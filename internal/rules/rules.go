// Package rules installs and tears down the kernel-side predicates
// that forward candidate packets to the interception loop (§4.7).
package rules

import "sync/atomic"

// fastPathAvailable is set once during bootstrap and read many times
// (§5/§9: "Platform capability flags ... atomic bool, set once during
// bootstrap, read many times").
var fastPathAvailable atomic.Bool

// FastPathAvailable reports whether the installed capture predicate
// already filtered for ClientHello in-kernel, letting §4.6's classify
// skip the slow-path detector.
func FastPathAvailable() bool {
	return fastPathAvailable.Load()
}

// Config is the subset of the daemon configuration the rule manager
// needs, shared across every platform backend.
type Config struct {
	QueueNum    uint16
	NFTCommand  string
	FakeAutoTTL bool
}

// Manager installs and cleans up a platform's capture rules. Install
// and Cleanup must both be idempotent and tolerate partial prior
// state (§4.7, §5: cleanup must run on every exit path).
type Manager interface {
	Install() error
	Cleanup() error
}

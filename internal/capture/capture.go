// Package capture exposes the uniform capture-source/inject-sink
// capability described in spec §9: "on one OS, capture and inject are
// separate handles onto a user-mode diverter; on another, capture is
// a kernel packet queue and injection is a raw socket. Expose a
// uniform two-method capability {pull, verdict, send} and two
// implementations."
package capture

import "context"

// Verdict is the capture source's disposition for one pulled packet.
type Verdict int

const (
	// Accept lets the original packet through unmodified.
	Accept Verdict = iota
	// Drop suppresses the original packet (the handled-packet path
	// has already queued its own rebuilt segments for send).
	Drop
)

// Capability is the pull/verdict/send abstraction shared by every
// platform backend. Pull blocks until a packet arrives or ctx is
// cancelled. The opaque token returned by Pull must be passed back to
// Verdict exactly once.
type Capability interface {
	Pull(ctx context.Context) (pkt []byte, token any, err error)
	Verdict(token any, v Verdict) error
	Send(pkt []byte) error
	Close() error
}

// Package decoy builds the "fake" ClientHello packet: a benign-looking
// TLS-record-shaped payload, of the same length as the real segment it
// precedes, with a TTL tuned to expire between the client and the DPI
// middlebox and an optionally corrupted TCP checksum.
package decoy

import (
	"github.com/nthop/dpibreak/internal/hoptab"
	"github.com/nthop/dpibreak/internal/pktview"
	"github.com/nthop/dpibreak/internal/rebuilder"
)

// badSumXOR is the constant XORed into a correctly-computed TCP
// checksum to produce --fake-badsum's corrupted value. Any nonzero
// constant satisfies the spec's open question (§9); this one is
// chosen for stability across test runs and memorability in captures.
const badSumXOR = 0xBAAD

// Config is the subset of the daemon's configuration the decoy
// builder needs. It is read-only: decoy never mutates it.
type Config struct {
	Fake        bool
	FakeTTL     uint8
	FakeAutoTTL bool
	FakeBadsum  bool
	DelayMS     uint64
}

// fillerPattern is the deterministic byte the decoy payload body is
// filled with once its TLS-record-shaped header has been written.
// It is not a copy of the real ClientHello: the spec only requires
// "benign-looking ... same length" (§4.5; Open Question decision in
// SPEC_FULL.md §9).
const fillerPattern = 0x00

// buildPayload produces a length-n byte slice shaped like a TLS
// record header (ContentType=handshake) followed by a ClientHello
// handshake header, then deterministic filler.
func buildPayload(n int) []byte {
	out := make([]byte, n)
	if n == 0 {
		return out
	}

	out[0] = 0x16 // ContentType: handshake
	if n > 1 {
		out[1] = 0x03
	}
	if n > 2 {
		out[2] = 0x01
	}
	if n >= 5 {
		recLen := uint16(n - 5)
		out[3] = byte(recLen >> 8)
		out[4] = byte(recLen)
	}
	if n > 5 {
		out[5] = 0x01 // HandshakeType: ClientHello
	}
	for i := 6; i < n; i++ {
		out[i] = fillerPattern
	}
	return out
}

// resolveTTL implements §4.5's TTL resolution order: fixed fake TTL,
// overridden by HopTab-derived TTL when autottl is enabled and a hop
// entry exists, falling back to the fixed value silently on a miss
// (§7: "falls back ... silently, no log spam").
func resolveTTL(cfg Config, tab *hoptab.HopTab, view *pktview.View) uint8 {
	if !cfg.FakeAutoTTL || tab == nil {
		return cfg.FakeTTL
	}

	hop, err := tab.FindHop(view.DstIP())
	if err != nil {
		return cfg.FakeTTL
	}
	return hop + 1
}

// FakeClientHello builds the decoy packet for the span [start, end) of
// view's TCP payload: same addresses/4-tuple/sequence range as the
// real segment split_segment would emit there, with a synthetic
// payload of equal length, the resolved TTL, and an optionally
// corrupted checksum.
func FakeClientHello(view *pktview.View, start, end int, cfg Config, tab *hoptab.HopTab) ([]byte, error) {
	// The synthetic payload spans the whole real payload; BuildPacket
	// slices [start, end) out of it exactly as it does for the real
	// segment, so the decoy span has the same length and offset.
	fake := buildPayload(len(view.Payload()))
	ttl := resolveTTL(cfg, tab, view)

	opts := rebuilder.Options{
		PayloadOverride: fake,
		TTLOverride:     &ttl,
	}

	if cfg.FakeBadsum {
		// Real checksum is computed first by letting BuildPacket run
		// once without the override, then the override is derived
		// from it, so the "corrupted" value is always a function of
		// a correct checksum rather than an arbitrary constant.
		probe, err := rebuilder.BuildPacket(view, start, end, rebuilder.Options{
			PayloadOverride: fake,
			TTLOverride:     &ttl,
		})
		if err != nil {
			return nil, err
		}
		correct := extractTCPChecksum(probe)
		bad := correct ^ badSumXOR
		opts.TCPChecksumOverride = &bad
	}

	return rebuilder.BuildPacket(view, start, end, opts)
}

// extractTCPChecksum reads the two already-correctly-computed
// checksum bytes out of a serialized IPv4/IPv6+TCP packet.
func extractTCPChecksum(pkt []byte) uint16 {
	var ipHeaderLen int
	if pkt[0]>>4 == 4 {
		ipHeaderLen = int(pkt[0]&0x0F) * 4
	} else {
		ipHeaderLen = 40
	}
	off := ipHeaderLen + 16
	return uint16(pkt[off])<<8 | uint16(pkt[off+1])
}

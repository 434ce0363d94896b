// Package rebuilder constructs byte-exact rewritten IP+TCP packets
// from a pktview.View, with overrides for the sequence-number offset,
// payload slice, IP TTL/hop-limit, and an optional raw TCP checksum
// patch (used by the decoy "badsum" corner case).
package rebuilder

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/nthop/dpibreak/internal/pktview"
)

// ErrIndex is returned when start/end are out of range for the chosen
// payload.
var ErrIndex = errors.New("rebuilder: index out of range")

// Options carries build_packet's optional overrides. A zero value
// requests no overrides: the original payload slice, the original
// TTL, and a correctly computed checksum.
type Options struct {
	// PayloadOverride replaces view's TCP payload if non-nil.
	PayloadOverride []byte
	// TTLOverride replaces the IPv4 TTL / IPv6 hop-limit if non-nil.
	TTLOverride *uint8
	// TCPChecksumOverride, if non-nil, is patched verbatim into the
	// serialized TCP checksum field after normal checksum computation.
	TCPChecksumOverride *uint16
}

// noEnd means "end not provided": end defaults to len(payload).
const noEnd = -1

// BuildPacket implements build_packet from §4.4: it emits a copy of
// view's IP header (TTL overridden if requested, options preserved),
// a copy of view's TCP header (options preserved, sequence number
// advanced by start, wrapping), and the payload slice [start, end) of
// either view's payload or payloadOverride if given. end < 0 means
// "through the end of the payload".
func BuildPacket(view *pktview.View, start, end int, opts Options) ([]byte, error) {
	payload := view.Payload()
	if opts.PayloadOverride != nil {
		payload = opts.PayloadOverride
	}

	if end < 0 {
		end = len(payload)
	}
	if start < 0 || end < start || end > len(payload) {
		return nil, fmt.Errorf("%w: start=%d end=%d len=%d", ErrIndex, start, end, len(payload))
	}
	slice := payload[start:end]

	switch view.Family() {
	case pktview.FamilyV4:
		return buildV4(view, start, slice, opts)
	case pktview.FamilyV6:
		return buildV6(view, start, slice, opts)
	default:
		return nil, fmt.Errorf("rebuilder: unknown family %v", view.Family())
	}
}

// SplitSegment is the override-free convenience form used to emit the
// real (non-decoy) segments.
func SplitSegment(view *pktview.View, start, end int) ([]byte, error) {
	return BuildPacket(view, start, end, Options{})
}

func copyTCP(view *pktview.View, start int) layers.TCP {
	tcp := *view.TCP()
	tcp.Seq += uint32(start) // wrapping per Go unsigned overflow semantics
	tcp.BaseLayer = gopacket.BaseLayer{}
	return tcp
}

func buildV4(view *pktview.View, start int, payload []byte, opts Options) ([]byte, error) {
	ip := *view.IPv4()
	ip.BaseLayer = gopacket.BaseLayer{}
	if opts.TTLOverride != nil {
		ip.TTL = *opts.TTLOverride
	}

	tcp := copyTCP(view, start)
	if err := tcp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, fmt.Errorf("rebuilder: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	serOpts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, serOpts, &ip, &tcp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("rebuilder: serialize: %w", err)
	}

	out := buf.Bytes()
	patchTCPChecksum(out, int(ip.IHL)*4, opts.TCPChecksumOverride)
	return out, nil
}

func buildV6(view *pktview.View, start int, payload []byte, opts Options) ([]byte, error) {
	ip := *view.IPv6()
	ip.BaseLayer = gopacket.BaseLayer{}
	// Reference behavior (spec §4.4/§9): extension headers are not
	// carried forward on IPv6 rebuild. pktview accepts packets with
	// extension headers before TCP, so the copied header is reset to
	// carry TCP directly.
	ip.HopByHop = nil
	ip.NextHeader = layers.IPProtocolTCP
	if opts.TTLOverride != nil {
		ip.HopLimit = *opts.TTLOverride
	}

	tcp := copyTCP(view, start)
	if err := tcp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, fmt.Errorf("rebuilder: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	serOpts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, serOpts, &ip, &tcp, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("rebuilder: serialize: %w", err)
	}

	out := buf.Bytes()
	const ipv6HeaderLen = 40
	patchTCPChecksum(out, ipv6HeaderLen, opts.TCPChecksumOverride)
	return out, nil
}

// patchTCPChecksum overwrites the two checksum bytes of the TCP
// header at ipHeaderLen verbatim, per §4.4's final step. It is a
// no-op when override is nil.
func patchTCPChecksum(out []byte, ipHeaderLen int, override *uint16) {
	if override == nil {
		return
	}
	off := ipHeaderLen + 16
	if off+2 > len(out) {
		return
	}
	out[off] = byte(*override >> 8)
	out[off+1] = byte(*override)
}

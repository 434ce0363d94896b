// Package pktview provides a zero-copy view over a captured IP+TCP
// datagram: family, TTL/hop-limit, addresses, the full TCP header
// (with options), and the TCP payload slice. It mirrors the layered
// decomposition style of gopacket-based packet tooling (see
// angelosk-HoneyBadger's inquisition.go for the pattern this follows),
// but only ever decodes as far as the TCP header.
package pktview

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrParse is returned (wrapped with detail) when raw is not a
// well-formed IP+TCP packet: truncated, wrong L4 protocol, or an
// unrecognized IP version.
var ErrParse = errors.New("pktview: parse error")

// Family identifies the IP version of the captured packet.
type Family int

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

// View is an immutable handle over one captured packet's bytes. Every
// accessor reads directly from the buffer the caller supplied to
// Parse; a View must not be retained past the capture callback that
// produced it.
type View struct {
	raw    []byte
	family Family
	ipv4   *layers.IPv4
	ipv6   *layers.IPv6
	tcp    *layers.TCP
}

// Parse decodes raw (starting at the IP header) into a View. raw is
// not copied; its lifetime must outlive the View.
func Parse(raw []byte) (*View, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("%w: empty buffer", ErrParse)
	}

	version := raw[0] >> 4

	var firstLayer gopacket.LayerType
	switch version {
	case 4:
		firstLayer = layers.LayerTypeIPv4
	case 6:
		firstLayer = layers.LayerTypeIPv6
	default:
		return nil, fmt.Errorf("%w: unknown IP version %d", ErrParse, version)
	}

	packet := gopacket.NewPacket(raw, firstLayer, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	if err := packet.ErrorLayer(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err.Error())
	}

	v := &View{raw: raw}

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		v.family = FamilyV4
		v.ipv4 = l.(*layers.IPv4)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		v.family = FamilyV6
		v.ipv6 = l.(*layers.IPv6)
	} else {
		return nil, fmt.Errorf("%w: no IP layer decoded", ErrParse)
	}

	tcpLayer := packet.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return nil, fmt.Errorf("%w: L4 protocol is not TCP", ErrParse)
	}
	v.tcp = tcpLayer.(*layers.TCP)

	return v, nil
}

func (v *View) Family() Family { return v.family }

// TTL returns the IPv4 TTL or IPv6 hop-limit.
func (v *View) TTL() uint8 {
	if v.family == FamilyV4 {
		return v.ipv4.TTL
	}
	return v.ipv6.HopLimit
}

func (v *View) SrcIP() net.IP {
	if v.family == FamilyV4 {
		return v.ipv4.SrcIP
	}
	return v.ipv6.SrcIP
}

func (v *View) DstIP() net.IP {
	if v.family == FamilyV4 {
		return v.ipv4.DstIP
	}
	return v.ipv6.DstIP
}

// TCP returns the decoded TCP header, including options.
func (v *View) TCP() *layers.TCP { return v.tcp }

// Payload returns the TCP payload slice (a view into raw, not a copy).
func (v *View) Payload() []byte { return v.tcp.Payload }

// IPv4 returns the decoded IPv4 layer, or nil on a v6 packet.
func (v *View) IPv4() *layers.IPv4 { return v.ipv4 }

// IPv6 returns the decoded IPv6 layer, or nil on a v4 packet.
func (v *View) IPv6() *layers.IPv6 { return v.ipv6 }

// Raw returns the original packet bytes this View was parsed from.
func (v *View) Raw() []byte { return v.raw }

package hoptab

import (
	"encoding/binary"
	"net"
)

// hopKey is a 128-bit normalized IP address: IPv4 is stored in its
// IPv4-mapped IPv6 form (0x0000_0000_0000_0000_0000_FFFF_aabb_ccdd),
// IPv6 verbatim, both split big-endian across hi/lo. Zero is the
// sentinel for an empty slot; equality is plain struct ==.
type hopKey struct {
	hi, lo uint64
}

func newHopKey(ip net.IP) hopKey {
	if v4 := ip.To4(); v4 != nil {
		lo := uint64(0x0000FFFF)<<32 | uint64(binary.BigEndian.Uint32(v4))
		return hopKey{hi: 0, lo: lo}
	}

	v6 := ip.To16()
	return hopKey{
		hi: binary.BigEndian.Uint64(v6[0:8]),
		lo: binary.BigEndian.Uint64(v6[8:16]),
	}
}

package hoptab

// hopEntry packs a table slot's state/hop/ts triple into one word, the
// same way the teacher's pkg/tcpinfo/tcpinfo_linux.go packs tcp_info's
// wscale/options bits into bitfield0/bitfield1. The raw word never
// leaves this file; HopTab's public API only ever returns hop/error.
//
// layout (low to high):
//
//	bits [0:8)   stateBits (occupiedBit | touchedBit)
//	bits [8:16)  hop
//	bits [16:32) ts (insertion tick, 16-bit wrapping)
//	bits [32:64) reserved, always zero
type hopEntry struct {
	key  hopKey
	meta uint64
}

const (
	occupiedBit uint64 = 1 << 0
	touchedBit  uint64 = 1 << 1
)

func (e hopEntry) occupied() bool {
	return e.meta&occupiedBit != 0
}

func (e hopEntry) touched() bool {
	return e.meta&touchedBit != 0
}

func (e hopEntry) hop() uint8 {
	return uint8(e.meta >> 8)
}

func (e hopEntry) ts() uint16 {
	return uint16(e.meta >> 16)
}

func (e *hopEntry) setTouched() {
	e.meta |= touchedBit
}

// occupy overwrites the slot with a fresh OCCUPIED, untouched entry.
func (e *hopEntry) occupy(key hopKey, hop uint8, ts uint16) {
	e.key = key
	e.meta = occupiedBit | (uint64(hop) << 8) | (uint64(ts) << 16)
}

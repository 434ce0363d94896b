package sniffer

import "testing"

// TestInferHops mirrors scenario S7.
func TestInferHops(t *testing.T) {
	cases := []struct {
		ttl        uint8
		wantOrigin uint8
		wantHops   uint8
	}{
		{ttl: 53, wantOrigin: 64, wantHops: 11},
		{ttl: 115, wantOrigin: 128, wantHops: 13},
		{ttl: 250, wantOrigin: 255, wantHops: 5},
		{ttl: 64, wantOrigin: 64, wantHops: 0},
	}

	for _, c := range cases {
		origin, hops := InferHops(c.ttl)
		if origin != c.wantOrigin || hops != c.wantHops {
			t.Errorf("InferHops(%d) = (%d, %d), want (%d, %d)", c.ttl, origin, hops, c.wantOrigin, c.wantHops)
		}
	}
}

// TestInferHopsInvariant mirrors P9: origin in {64,128,255} and
// origin >= ttl for every possible ttl.
func TestInferHopsInvariant(t *testing.T) {
	for ttl := 0; ttl <= 255; ttl++ {
		origin, hops := InferHops(uint8(ttl))
		if origin != 64 && origin != 128 && origin != 255 {
			t.Fatalf("ttl=%d: origin=%d not in {64,128,255}", ttl, origin)
		}
		if origin < uint8(ttl) {
			t.Fatalf("ttl=%d: origin=%d < ttl", ttl, origin)
		}
		if hops != origin-uint8(ttl) {
			t.Fatalf("ttl=%d: hops=%d != origin-ttl=%d", ttl, hops, origin-uint8(ttl))
		}
	}
}

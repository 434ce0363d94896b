// Package sniffer implements the optional auto-TTL concurrent task: it
// observes inbound SYN+ACK segments from port 443, infers the
// originating host's hop count from the observed TTL, and feeds
// internal/hoptab.
package sniffer

// plausibleOrigins are the TTLs a sending OS is assumed to start a
// packet at; infer_hops picks the smallest one not smaller than the
// observed TTL.
var plausibleOrigins = [...]uint8{64, 128, 255}

// InferHops implements infer_hops (§4.6): it returns the smallest
// plausible origin TTL >= ttl, and the hop count (origin - ttl).
func InferHops(ttl uint8) (origin uint8, hops uint8) {
	for _, o := range plausibleOrigins {
		if o >= ttl {
			return o, o - ttl
		}
	}
	// ttl > 255 is impossible for a uint8, so the loop above always
	// finds 255 as a fallback; this line is unreachable.
	return 255, 0
}

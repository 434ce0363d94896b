// Package tlsdetect implements the byte-level fingerprint that decides
// whether a captured TCP payload opens with a TLS ClientHello. It is
// not a TLS parser: it never inspects the record length, the
// legacy_version field, or the ClientHello body, and it never handles
// handshake messages fragmented across records.
package tlsdetect

const (
	contentTypeHandshake = 0x16
	handshakeTypeClientHello = 0x01
)

// IsClientHello reports whether payload opens with a TLS handshake
// record (ContentType 0x16) whose first handshake message is
// ClientHello (0x01). It fails closed (returns false) on any
// out-of-range access instead of panicking.
func IsClientHello(payload []byte) bool {
	if len(payload) < 6 {
		return false
	}
	if payload[0] != contentTypeHandshake {
		return false
	}
	return payload[5] == handshakeTypeClientHello
}

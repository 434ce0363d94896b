package pktview

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func buildIPv4TCP(t *testing.T, payload []byte, ttl uint8) []byte {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		TTL:      ttl,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 168, 1, 2),
		DstIP:    net.IPv4(93, 184, 216, 34),
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: 443,
		Seq:     1000,
		Window:  8192,
		SYN:     false,
		ACK:     true,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return buf.Bytes()
}

func TestParseIPv4TCP(t *testing.T) {
	raw := buildIPv4TCP(t, []byte("ABCDE"), 57)

	v, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if v.Family() != FamilyV4 {
		t.Fatalf("Family = %v, want FamilyV4", v.Family())
	}
	if v.TTL() != 57 {
		t.Fatalf("TTL = %d, want 57", v.TTL())
	}
	if !v.DstIP().Equal(net.IPv4(93, 184, 216, 34)) {
		t.Fatalf("DstIP = %v", v.DstIP())
	}
	if string(v.Payload()) != "ABCDE" {
		t.Fatalf("Payload = %q, want ABCDE", v.Payload())
	}
	if v.TCP().Seq != 1000 {
		t.Fatalf("Seq = %d, want 1000", v.TCP().Seq)
	}
}

func TestParseRejectsTruncated(t *testing.T) {
	raw := buildIPv4TCP(t, []byte("ABCDE"), 57)

	if _, err := Parse(raw[:10]); err == nil {
		t.Fatal("expected ParseError on truncated buffer")
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	raw := []byte{0x50, 0, 0, 0, 0, 0, 0, 0}
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected ParseError on unknown IP version")
	}
}

func TestParseRejectsNonTCP(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(1, 2, 3, 4),
		DstIP:    net.IPv4(5, 6, 7, 8),
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 443}
	_ = udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, gopacket.Payload([]byte("x"))); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}

	if _, err := Parse(buf.Bytes()); err == nil {
		t.Fatal("expected ParseError for non-TCP L4 protocol")
	}
}

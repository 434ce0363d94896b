package rebuilder

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/nthop/dpibreak/internal/pktview"
)

func buildView(t *testing.T, payload []byte) *pktview.View {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		TTL:      57,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 168, 1, 2),
		DstIP:    net.IPv4(93, 184, 216, 34),
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: 443,
		Seq:     1000,
		Window:  8192,
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

	raw := make([]byte, len(buf.Bytes()))
	copy(raw, buf.Bytes())

	v, err := pktview.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return v
}

// TestRoundTrip checks P2: split_segment(view, 0, None) reproduces the
// original payload and sequence number.
func TestRoundTrip(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))

	out, err := SplitSegment(view, 0, noEnd)
	if err != nil {
		t.Fatalf("SplitSegment: %v", err)
	}

	rebuilt, err := pktview.Parse(out)
	if err != nil {
		t.Fatalf("Parse(rebuilt): %v", err)
	}

	if string(rebuilt.Payload()) != "ABCDE" {
		t.Fatalf("payload = %q, want ABCDE", rebuilt.Payload())
	}
	if rebuilt.TCP().Seq != view.TCP().Seq {
		t.Fatalf("seq = %d, want %d", rebuilt.TCP().Seq, view.TCP().Seq)
	}
}

// TestPartition checks P3: the two split halves' payloads concatenate
// to the original and the second's sequence number is offset by k.
func TestPartition(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	const k = 1

	head, err := SplitSegment(view, 0, k)
	if err != nil {
		t.Fatalf("SplitSegment head: %v", err)
	}
	tail, err := SplitSegment(view, k, noEnd)
	if err != nil {
		t.Fatalf("SplitSegment tail: %v", err)
	}

	headView, err := pktview.Parse(head)
	if err != nil {
		t.Fatalf("Parse(head): %v", err)
	}
	tailView, err := pktview.Parse(tail)
	if err != nil {
		t.Fatalf("Parse(tail): %v", err)
	}

	got := string(headView.Payload()) + string(tailView.Payload())
	if got != "ABCDE" {
		t.Fatalf("concatenated payload = %q, want ABCDE", got)
	}
	if tailView.TCP().Seq != headView.TCP().Seq+k {
		t.Fatalf("tail seq = %d, want head seq + %d = %d", tailView.TCP().Seq, k, headView.TCP().Seq+k)
	}
}

// TestS4SplitOneAndRest mirrors scenario S4 directly.
func TestS4SplitOneAndRest(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))

	first, err := SplitSegment(view, 0, 1)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := SplitSegment(view, 1, noEnd)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	firstView, err := pktview.Parse(first)
	if err != nil {
		t.Fatalf("parse first: %v", err)
	}
	secondView, err := pktview.Parse(second)
	if err != nil {
		t.Fatalf("parse second: %v", err)
	}

	if string(firstView.Payload()) != "A" {
		t.Fatalf("first payload = %q, want A", firstView.Payload())
	}
	if string(secondView.Payload()) != "BCDE" {
		t.Fatalf("second payload = %q, want BCDE", secondView.Payload())
	}
	if firstView.TCP().Seq != view.TCP().Seq {
		t.Fatalf("first seq = %d, want %d", firstView.TCP().Seq, view.TCP().Seq)
	}
	if secondView.TCP().Seq != view.TCP().Seq+1 {
		t.Fatalf("second seq = %d, want %d", secondView.TCP().Seq, view.TCP().Seq+1)
	}
}

func TestIndexErrorOnOutOfRange(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))

	if _, err := BuildPacket(view, 3, 2, Options{}); err == nil {
		t.Fatal("expected IndexError for end < start")
	}
	if _, err := BuildPacket(view, 0, 99, Options{}); err == nil {
		t.Fatal("expected IndexError for end > len(payload)")
	}
}

func TestTTLOverride(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	ttl := uint8(8)

	out, err := BuildPacket(view, 0, noEnd, Options{TTLOverride: &ttl})
	if err != nil {
		t.Fatalf("BuildPacket: %v", err)
	}

	rebuilt, err := pktview.Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rebuilt.TTL() != 8 {
		t.Fatalf("TTL = %d, want 8", rebuilt.TTL())
	}
}

func TestTCPChecksumOverridePatchedVerbatim(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	bad := uint16(0xBAAD)

	out, err := BuildPacket(view, 0, noEnd, Options{TCPChecksumOverride: &bad})
	if err != nil {
		t.Fatalf("BuildPacket: %v", err)
	}

	ipHeaderLen := int(out[0]&0x0F) * 4
	off := ipHeaderLen + 16
	got := uint16(out[off])<<8 | uint16(out[off+1])
	if got != bad {
		t.Fatalf("checksum = %#x, want %#x", got, bad)
	}
}

package decoy

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/nthop/dpibreak/internal/hoptab"
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
	tcp := &layers.TCP{SrcPort: 51000, DstPort: 443, Seq: 1000, ACK: true}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	raw := append([]byte(nil), buf.Bytes()...)

	v, err := pktview.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return v
}

// TestFakeAutoTTLFallback mirrors scenario S8: no HopTab entry for
// dest means the decoy TTL falls back to --fake-ttl, silently.
func TestFakeAutoTTLFallback(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	tab := hoptab.New()

	cfg := Config{Fake: true, FakeTTL: 8, FakeAutoTTL: true}

	out, err := FakeClientHello(view, 0, -1, cfg, tab)
	if err != nil {
		t.Fatalf("FakeClientHello: %v", err)
	}

	rebuilt, err := pktview.Parse(out)
	if err != nil {
		t.Fatalf("Parse(rebuilt): %v", err)
	}
	if rebuilt.TTL() != 8 {
		t.Fatalf("TTL = %d, want 8 (fallback)", rebuilt.TTL())
	}
}

func TestFakeAutoTTLHit(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	tab := hoptab.New()
	tab.Put(net.IPv4(93, 184, 216, 34), 10)

	cfg := Config{Fake: true, FakeTTL: 8, FakeAutoTTL: true}

	out, err := FakeClientHello(view, 0, -1, cfg, tab)
	if err != nil {
		t.Fatalf("FakeClientHello: %v", err)
	}

	rebuilt, err := pktview.Parse(out)
	if err != nil {
		t.Fatalf("Parse(rebuilt): %v", err)
	}
	if rebuilt.TTL() != 11 {
		t.Fatalf("TTL = %d, want 11 (hop+1)", rebuilt.TTL())
	}
}

func TestFakeSameLengthAsReal(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	cfg := Config{Fake: true, FakeTTL: 8}

	out, err := FakeClientHello(view, 0, -1, cfg, nil)
	if err != nil {
		t.Fatalf("FakeClientHello: %v", err)
	}
	rebuilt, err := pktview.Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rebuilt.Payload()) != len("ABCDE") {
		t.Fatalf("fake payload len = %d, want %d", len(rebuilt.Payload()), len("ABCDE"))
	}
}

func TestFakeBadsumCorruptsChecksum(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))

	good := Config{Fake: true, FakeTTL: 8}
	goodOut, err := FakeClientHello(view, 0, -1, good, nil)
	if err != nil {
		t.Fatalf("good FakeClientHello: %v", err)
	}

	bad := Config{Fake: true, FakeTTL: 8, FakeBadsum: true}
	badOut, err := FakeClientHello(view, 0, -1, bad, nil)
	if err != nil {
		t.Fatalf("bad FakeClientHello: %v", err)
	}

	if extractTCPChecksum(goodOut) == extractTCPChecksum(badOut) {
		t.Fatal("badsum checksum should differ from correct checksum")
	}
}

// TestSendSplitOrdering mirrors P7: order [0,1] with fake enabled
// emits exactly 4 segments, in order [fake0, real0, fake1, real1],
// and the real segments' payloads concatenate to the original.
func TestSendSplitOrdering(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	cfg := Config{Fake: true, FakeTTL: 8}

	type sent struct {
		ttl     uint8
		payload []byte
	}
	var got []sent

	send := func(pkt []byte) error {
		v, err := pktview.Parse(pkt)
		if err != nil {
			t.Fatalf("parse sent packet: %v", err)
		}
		got = append(got, sent{ttl: v.TTL(), payload: append([]byte(nil), v.Payload()...)})
		return nil
	}

	if err := SendSplit(view, []int{0, 1}, cfg, nil, send); err != nil {
		t.Fatalf("SendSplit: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("got %d sends, want 4", len(got))
	}

	// fake0, real0
	if got[0].ttl != 8 {
		t.Errorf("send 0 ttl = %d, want 8 (fake)", got[0].ttl)
	}
	if got[1].ttl == 8 {
		t.Errorf("send 1 should be the real segment, got fake TTL")
	}
	// fake1, real1
	if got[2].ttl != 8 {
		t.Errorf("send 2 ttl = %d, want 8 (fake)", got[2].ttl)
	}

	real := string(got[1].payload) + string(got[3].payload)
	if real != "ABCDE" {
		t.Fatalf("real payloads concatenated = %q, want ABCDE", real)
	}
}

func TestSendSplitNoFakeEmitsTwoSegments(t *testing.T) {
	view := buildView(t, []byte("ABCDE"))
	cfg := Config{Fake: false}

	var got [][]byte
	send := func(pkt []byte) error {
		v, err := pktview.Parse(pkt)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got = append(got, append([]byte(nil), v.Payload()...))
		return nil
	}

	if err := SendSplit(view, []int{0, 1}, cfg, nil, send); err != nil {
		t.Fatalf("SendSplit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sends, want 2", len(got))
	}
	if string(got[0])+string(got[1]) != "ABCDE" {
		t.Fatalf("concatenated = %q, want ABCDE", string(got[0])+string(got[1]))
	}
}

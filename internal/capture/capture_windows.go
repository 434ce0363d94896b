//go:build windows

package capture

import (
	"context"
	"fmt"

	"github.com/williamfhe/godivert"
)

// CaptureFilter is the WinDivert filter string doubling as this
// platform's capture predicate. Unlike Linux's iptables/nft rules,
// there is no separate kernel-side byte-match fast path on Windows —
// the filter only selects "outbound and tcp.DstPort == 443"; the
// slow-path TLS detector (internal/tlsdetect) always runs here
// (original_source/src/platform/windows.rs's WINDIVERT_HANDLE filter).
const CaptureFilter = "outbound and tcp.DstPort == 443"

// WinDivertCapability captures and injects through a single WinDivert
// handle, mirroring original_source/src/platform/windows.rs: one
// handle serves both recv and send.
type WinDivertCapability struct {
	wd *godivert.WinDivertHandle
}

// New opens the platform capture/inject capability. queueNum is
// unused on Windows (WinDivert has no queue concept) but kept in the
// signature so cmd/dpibreak can call capture.New uniformly.
func New(ctx context.Context, queueNum uint16) (Capability, error) {
	return NewWinDivertCapability()
}

func NewWinDivertCapability() (*WinDivertCapability, error) {
	wd, err := godivert.NewWinDivertHandle(CaptureFilter)
	if err != nil {
		return nil, fmt.Errorf("capture: WinDivert open: %w", err)
	}
	return &WinDivertCapability{wd: wd}, nil
}

func (c *WinDivertCapability) Pull(ctx context.Context) ([]byte, any, error) {
	type result struct {
		pkt *godivert.Packet
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pkt, err := c.wd.Recv()
		ch <- result{pkt, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, nil, fmt.Errorf("capture: WinDivert recv: %w", r.err)
		}
		return r.pkt.Raw, r.pkt, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Verdict re-injects an Accepted packet unchanged (WinDivert requires
// an explicit re-send for every packet it diverted, including ones
// the daemon decided not to touch); Drop is a no-op.
func (c *WinDivertCapability) Verdict(token any, v Verdict) error {
	pkt, ok := token.(*godivert.Packet)
	if !ok || v == Drop {
		return nil
	}
	_, err := c.wd.Send(pkt)
	return err
}

// Send re-injects a rebuilt packet, setting the outbound/impostor
// address flags so WinDivert's own filter does not recapture it
// (original_source/src/platform/windows.rs's send_to_raw).
func (c *WinDivertCapability) Send(raw []byte) error {
	pkt := godivert.NewPacket(raw)
	pkt.Addr.Outbound = true
	pkt.Addr.Impostor = true

	_, err := c.wd.Send(pkt)
	return err
}

func (c *WinDivertCapability) Close() error {
	return c.wd.Close()
}

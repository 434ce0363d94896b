package decoy

import (
	"fmt"
	"time"

	"github.com/nthop/dpibreak/internal/hoptab"
	"github.com/nthop/dpibreak/internal/pktview"
	"github.com/nthop/dpibreak/internal/rebuilder"
)

// RawSend delivers a fully-built IP packet to the network, tagged so
// the capture-rule manager's own rules do not re-intercept it. It is
// the send half of the capture/inject capability (§9).
type RawSend func(pkt []byte) error

// SendSegment implements send_segment (§4.5): if fake injection is
// enabled, the decoy for [start, end) is sent strictly before the
// real segment covering the same span.
func SendSegment(view *pktview.View, start, end int, cfg Config, tab *hoptab.HopTab, send RawSend) error {
	if cfg.Fake {
		fake, err := FakeClientHello(view, start, end, cfg, tab)
		if err != nil {
			return fmt.Errorf("decoy: build fake: %w", err)
		}
		if err := send(fake); err != nil {
			return fmt.Errorf("decoy: send fake: %w", err)
		}
	}

	real, err := rebuilder.SplitSegment(view, start, end)
	if err != nil {
		return fmt.Errorf("decoy: build segment: %w", err)
	}
	if err := send(real); err != nil {
		return fmt.Errorf("decoy: send segment: %w", err)
	}
	return nil
}

// SendSplit implements send_split (§4.5): for consecutive pairs in
// order it sends the [order[i], order[i+1]) segment, sleeping
// DelayMS between sends, then finally sends [order[last], end-of-
// payload).
func SendSplit(view *pktview.View, order []int, cfg Config, tab *hoptab.HopTab, send RawSend) error {
	if len(order) == 0 {
		order = []int{0}
	}

	delay := time.Duration(cfg.DelayMS) * time.Millisecond

	for i := 0; i+1 < len(order); i++ {
		if err := SendSegment(view, order[i], order[i+1], cfg, tab, send); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	last := order[len(order)-1]
	return SendSegment(view, last, -1, cfg, tab, send)
}

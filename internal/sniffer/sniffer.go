package sniffer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nthop/dpibreak/internal/hoptab"
	"github.com/nthop/dpibreak/internal/pktview"
)

// Source is the pull half of the capture/inject capability (§9),
// scoped down to what the sniffer needs: block for the next captured
// frame, and acknowledge it so the underlying queue can recycle.
type Source interface {
	Pull(ctx context.Context) (pkt []byte, verdictCtx any, err error)
	Verdict(verdictCtx any, accept bool) error
}

// Run blocks pulling inbound SYN+ACK frames from src-port 443 off src
// and feeding HopTab, until ctx is cancelled. This is T2 in §5: it
// always verdicts Accept (the sniffer never suppresses traffic).
func Run(ctx context.Context, src Source, tab *hoptab.HopTab) {
	log := logrus.WithField("pkg", "sniffer")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, vctx, err := src.Pull(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("pull failed")
			continue
		}

		view, err := pktview.Parse(raw)
		if err == nil && view.TCP().SYN && view.TCP().ACK {
			_, hops := InferHops(view.TTL())
			tab.Put(view.SrcIP(), hops)
		}

		if err := src.Verdict(vctx, true); err != nil {
			log.WithError(err).Warn("verdict failed")
		}
	}
}

// Package daemon wires together the interception loop (§4.6): it
// classifies each captured packet, drives the decoy/segment sends on
// a "handled" verdict, and otherwise lets the original through.
//
// Its VerdictFn observer hook is adapted from the teacher's
// sockstats.go ReportStatsFn/StateMap pair: there, a connection
// wrapper reports Open/Close lifecycle events through one callback;
// here, the interception loop reports Handled/Rejected packet events
// through the same shape of callback, so logging and metrics share
// one call site instead of being sprinkled through classify().
package daemon

import (
	"context"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/nthop/dpibreak/internal/capture"
	"github.com/nthop/dpibreak/internal/decoy"
	"github.com/nthop/dpibreak/internal/hoptab"
	"github.com/nthop/dpibreak/internal/metrics"
	"github.com/nthop/dpibreak/internal/pktview"
	"github.com/nthop/dpibreak/internal/rules"
	"github.com/nthop/dpibreak/internal/tlsdetect"
)

// Outcome is the interception state machine's terminal state for one
// captured packet (§4.6: "received -> classify -> {handled,
// rejected}").
type Outcome int

const (
	Handled Outcome = iota
	Rejected
)

var outcomeNames = map[Outcome]string{
	Handled:  "handled",
	Rejected: "rejected",
}

// VerdictFn is notified once per captured packet with its outcome and,
// for Rejected, the reason ("parse_error", "not_clienthello" or
// "send_error"); the reason is empty for Handled.
type VerdictFn func(id xid.ID, outcome Outcome, reason string)

// SegmentOrder is the reference split order from §3: a 1-byte head
// segment followed by the remainder.
var SegmentOrder = []int{0, 1}

// Daemon drives one capture.Capability through classify/send_split.
type Daemon struct {
	cap       capture.Capability
	tab       *hoptab.HopTab
	cfg       decoy.Config
	onVerdict VerdictFn
	log       *logrus.Entry

	// Metrics, if set, receives per-packet decoy/segment send counts
	// from classify. It is nil-safe: a nil Metrics simply skips the
	// counter updates. cmd/dpibreak wires this to its *metrics.Collector
	// after New returns.
	Metrics *metrics.Collector
}

// New builds a Daemon. tab may be nil when auto-TTL is disabled.
func New(cap capture.Capability, tab *hoptab.HopTab, cfg decoy.Config, onVerdict VerdictFn) *Daemon {
	if onVerdict == nil {
		onVerdict = func(xid.ID, Outcome, string) {}
	}
	return &Daemon{
		cap:       cap,
		tab:       tab,
		cfg:       cfg,
		onVerdict: onVerdict,
		log:       logrus.WithField("pkg", "daemon"),
	}
}

// Run is T1 (§5): it blocks on the capture source until ctx is
// cancelled, classifying and handling each packet in line.
func (d *Daemon) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, token, err := d.cap.Pull(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.WithError(err).Warn("pull failed")
			continue
		}

		outcome := d.classify(raw)

		var verdict capture.Verdict
		if outcome == Handled {
			verdict = capture.Drop
		} else {
			verdict = capture.Accept
		}
		if err := d.cap.Verdict(token, verdict); err != nil {
			d.log.WithError(err).Warn("verdict failed")
		}
	}
}

// classify implements §4.6's classify(pkt_bytes), reporting the
// outcome through onVerdict. Every error in the inner pipeline is
// logged at WARNING and surfaces as Rejected so a bug never withholds
// the original packet (§7).
func (d *Daemon) classify(raw []byte) Outcome {
	id := xid.New()
	log := d.log.WithField("packet_id", id.String())

	view, err := pktview.Parse(raw)
	if err != nil {
		log.WithError(err).Warn("parse error")
		d.onVerdict(id, Rejected, "parse_error")
		return Rejected
	}

	if !rules.FastPathAvailable() && !tlsdetect.IsClientHello(view.Payload()) {
		d.onVerdict(id, Rejected, "not_clienthello")
		return Rejected
	}

	send := func(pkt []byte) error { return d.cap.Send(pkt) }
	if err := decoy.SendSplit(view, SegmentOrder, d.cfg, d.tab, send); err != nil {
		log.WithError(err).Warn("send_split failed")
		d.onVerdict(id, Rejected, "send_error")
		return Rejected
	}

	if d.Metrics != nil {
		segments := uint64(len(SegmentOrder))
		d.Metrics.AddSegments(segments)
		if d.cfg.Fake {
			d.Metrics.AddDecoys(segments)
		}
	}

	d.onVerdict(id, Handled, "")
	return Handled
}

// OutcomeName returns the human-readable name of an Outcome, the way
// the teacher's StateMap does for SockStatsOpen/SockStatsClose.
func OutcomeName(o Outcome) string {
	return outcomeNames[o]
}

// Package metrics adapts the teacher's pkg/exporter/exporter.go
// prometheus.Collector pattern (a Describe/Collect pair over a
// mutex-guarded snapshot) from per-connection tcp_info exposition to
// the daemon's own counters: packets seen, handled, rejected (by
// reason), decoys sent, segments sent, and the HopTab's
// occupancy.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nthop/dpibreak/internal/hoptab"
)

// Collector is a prometheus.Collector exposing the daemon's runtime
// counters. The zero value is not usable; construct with New.
type Collector struct {
	tab *hoptab.HopTab

	packetsSeen      uint64
	packetsHandled   uint64
	packetsRejected  uint64
	rejectedByReason sync.Map // string reason -> *uint64
	decoysSent       uint64
	segmentsSent     uint64

	seenDesc      *prometheus.Desc
	handledDesc   *prometheus.Desc
	rejectedDesc  *prometheus.Desc
	decoysDesc    *prometheus.Desc
	segmentsDesc  *prometheus.Desc
	hoptabDesc    *prometheus.Desc
}

// New returns a Collector reporting on tab's occupancy alongside the
// daemon's own counters. tab may be nil if auto-TTL is disabled, in
// which case the HopTab gauge is never emitted.
func New(tab *hoptab.HopTab) *Collector {
	return &Collector{
		tab:          tab,
		seenDesc:     prometheus.NewDesc("dpibreak_packets_seen_total", "Outbound TLS-candidate packets captured.", nil, nil),
		handledDesc:  prometheus.NewDesc("dpibreak_packets_handled_total", "Packets classified as ClientHello and split/injected.", nil, nil),
		rejectedDesc: prometheus.NewDesc("dpibreak_packets_rejected_total", "Packets let through unchanged, by reason.", []string{"reason"}, nil),
		decoysDesc:   prometheus.NewDesc("dpibreak_decoys_sent_total", "Fake ClientHello packets sent.", nil, nil),
		segmentsDesc: prometheus.NewDesc("dpibreak_segments_sent_total", "Real rebuilt segments sent.", nil, nil),
		hoptabDesc:   prometheus.NewDesc("dpibreak_hoptab_occupied", "Occupied HopTab slots.", nil, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.seenDesc
	descs <- c.handledDesc
	descs <- c.rejectedDesc
	descs <- c.decoysDesc
	descs <- c.segmentsDesc
	descs <- c.hoptabDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.seenDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.packetsSeen)))
	ch <- prometheus.MustNewConstMetric(c.handledDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.packetsHandled)))
	ch <- prometheus.MustNewConstMetric(c.decoysDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.decoysSent)))
	ch <- prometheus.MustNewConstMetric(c.segmentsDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.segmentsSent)))

	if c.tab != nil {
		ch <- prometheus.MustNewConstMetric(c.hoptabDesc, prometheus.GaugeValue, float64(c.tab.Occupied()))
	}

	c.rejectedByReason.Range(func(key, value any) bool {
		reason := key.(string)
		count := atomic.LoadUint64(value.(*uint64))
		ch <- prometheus.MustNewConstMetric(c.rejectedDesc, prometheus.CounterValue, float64(count), reason)
		return true
	})
}

func (c *Collector) IncSeen()    { atomic.AddUint64(&c.packetsSeen, 1) }
func (c *Collector) IncHandled() { atomic.AddUint64(&c.packetsHandled, 1) }

// AddDecoys and AddSegments accumulate the per-packet decoy/segment
// send counts reported by internal/daemon's classify (§4.6) after a
// successful send_split.
func (c *Collector) AddDecoys(n uint64)   { atomic.AddUint64(&c.decoysSent, n) }
func (c *Collector) AddSegments(n uint64) { atomic.AddUint64(&c.segmentsSent, n) }

// IncRejected increments the rejected-by-reason counter for reason.
func (c *Collector) IncRejected(reason string) {
	atomic.AddUint64(&c.packetsRejected, 1)

	v, _ := c.rejectedByReason.LoadOrStore(reason, new(uint64))
	atomic.AddUint64(v.(*uint64), 1)
}

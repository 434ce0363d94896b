// Command dpibreak is the DPI-evasion daemon: it captures outbound
// TLS ClientHello segments on port 443, splits them in flight, and
// optionally precedes them with a TTL-tuned decoy.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/nthop/dpibreak/internal/capture"
	"github.com/nthop/dpibreak/internal/config"
	"github.com/nthop/dpibreak/internal/daemon"
	"github.com/nthop/dpibreak/internal/decoy"
	"github.com/nthop/dpibreak/internal/hoptab"
	"github.com/nthop/dpibreak/internal/kernelver"
	"github.com/nthop/dpibreak/internal/metrics"
	"github.com/nthop/dpibreak/internal/privilege"
	"github.com/nthop/dpibreak/internal/rules"
	"github.com/nthop/dpibreak/internal/sniffer"
)

const splash = `dpibreak - DPI evasion daemon`

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	cfg.ConfigureLogrus(logrus.StandardLogger())

	if !cfg.NoSplash {
		logrus.Info(splash)
	}

	if err := privilege.Check(); err != nil {
		logrus.Errorf("%v", err)
		os.Exit(3)
	}

	if v, err := kernelver.GetKernelVersion(); err == nil {
		logrus.Infof("kernel %s", v)
	}

	ruleMgr := rules.New(rules.Config{
		QueueNum:    cfg.QueueNum,
		NFTCommand:  cfg.NFTCommand,
		FakeAutoTTL: cfg.FakeAutoTTL,
	})
	if err := ruleMgr.Install(); err != nil {
		logrus.Errorf("rule install: %v", err)
		if cerr := ruleMgr.Cleanup(); cerr != nil {
			logrus.Errorf("rule cleanup: %v", cerr)
		}
		os.Exit(1)
	}
	defer func() {
		if err := ruleMgr.Cleanup(); err != nil {
			logrus.Errorf("rule cleanup: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cc, err := capture.New(ctx, cfg.QueueNum)
	if err != nil {
		logrus.Errorf("capture open: %v", err)
		// os.Exit skips deferred calls, so clean up the rules here.
		if cerr := ruleMgr.Cleanup(); cerr != nil {
			logrus.Errorf("rule cleanup: %v", cerr)
		}
		os.Exit(2)
	}
	defer cc.Close()

	var tab *hoptab.HopTab
	if cfg.FakeAutoTTL {
		tab = hoptab.New()
	}

	mcol := metrics.New(tab)
	prometheus.MustRegister(mcol)
	go serveMetrics(mcol)

	onVerdict := func(id xid.ID, outcome daemon.Outcome, reason string) {
		log := logrus.WithFields(logrus.Fields{"packet_id": id.String(), "event": daemon.OutcomeName(outcome)})
		if outcome == daemon.Rejected && reason != "" {
			log = log.WithField("reason", reason)
		}
		log.Debug("packet processed")

		mcol.IncSeen()
		if outcome == daemon.Handled {
			mcol.IncHandled()
		} else {
			mcol.IncRejected(reason)
		}
	}

	decoyCfg := decoy.Config{
		Fake:        cfg.Fake,
		FakeTTL:     cfg.FakeTTL,
		FakeAutoTTL: cfg.FakeAutoTTL,
		FakeBadsum:  cfg.FakeBadsum,
		DelayMS:     cfg.DelayMS,
	}

	d := daemon.New(cc, tab, decoyCfg, onVerdict)
	d.Metrics = mcol

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logrus.Info("shutdown signal received")
		cancel()
	}()

	if cfg.FakeAutoTTL {
		sniffCap, err := capture.New(ctx, cfg.QueueNum+1)
		if err != nil {
			logrus.Warnf("auto-ttl sniffer disabled: %v", err)
		} else {
			defer sniffCap.Close()
			go sniffer.Run(ctx, sniffAdapter{sniffCap}, tab)
		}
	}

	d.Run(ctx)
}

// sniffAdapter narrows a capture.Capability down to sniffer.Source.
type sniffAdapter struct {
	cap capture.Capability
}

func (s sniffAdapter) Pull(ctx context.Context) ([]byte, any, error) {
	return s.cap.Pull(ctx)
}

func (s sniffAdapter) Verdict(token any, accept bool) error {
	v := capture.Accept
	if !accept {
		v = capture.Drop
	}
	return s.cap.Verdict(token, v)
}

func serveMetrics(mcol *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe("127.0.0.1:9469", mux); err != nil {
		logrus.WithError(err).Warn("metrics server exited")
	}
}

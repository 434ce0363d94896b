//go:build linux

package rules

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/coreos/go-iptables/iptables"
	"github.com/sirupsen/logrus"

	"github.com/nthop/dpibreak/internal/capture"
)

const dpibreakChain = "DPIBREAK"
const dpibreakTable = "dpibreak"

var log = logrus.WithField("pkg", "rules")

// New picks nft if NFTCommand resolves on PATH (spec §6 names
// --nft-command as load-bearing, so nft is the primary path), falling
// back to iptables — the original_source's own earlier
// platform/linux.rs bootstrap — when it does not.
func New(cfg Config) Manager {
	if _, err := exec.LookPath(cfg.NFTCommand); err == nil {
		return &nftManager{cfg: cfg}
	}
	log.Info("nft command not found, falling back to iptables")
	return &iptablesManager{cfg: cfg}
}

// --- nft backend (original_source/src/platform/linux/nftables.rs) ---

type nftManager struct {
	cfg Config
}

func (m *nftManager) nft(rule string) error {
	log.Infof("nft: %s", rule)
	cmd := exec.Command(m.cfg.NFTCommand, "-f", "-")
	cmd.Stdin = strings.NewReader(rule)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rules: nft: %w: %s", err, out)
	}
	return nil
}

func (m *nftManager) Install() error {
	_ = m.Cleanup()

	rule := fmt.Sprintf(
		"add table inet %s\n"+
			"add chain inet %s OUTPUT { type filter hook output priority 0; policy accept; }\n"+
			"add rule inet %s OUTPUT meta mark %#x return\n"+
			"add rule inet %s OUTPUT tcp dport 443 @ih,0,8 0x16 @ih,40,8 0x01 queue num %d bypass",
		dpibreakTable, dpibreakTable, dpibreakTable, capture.InjectMark, dpibreakTable, m.cfg.QueueNum,
	)
	if m.cfg.FakeAutoTTL {
		rule += fmt.Sprintf(
			"\nadd chain inet %s INPUT { type filter hook input priority 0; policy accept; }\n"+
				"add rule inet %s INPUT tcp sport 443 tcp flags syn,ack == syn,ack queue num %d bypass",
			dpibreakTable, dpibreakTable, m.cfg.QueueNum+1,
		)
	}
	if err := m.nft(rule); err != nil {
		return err
	}

	fastPathAvailable.Store(true)
	return nil
}

func (m *nftManager) Cleanup() error {
	rule := fmt.Sprintf("delete table inet %s", dpibreakTable)
	if err := m.nft(rule); err != nil {
		log.WithError(err).Debug("nft cleanup: table likely did not exist")
	}
	return nil
}

// --- iptables backend (original_source/src/platform/linux/iptables.rs) ---

var xtU32LoadedByUs atomic.Bool

type iptablesManager struct {
	cfg  Config
	ipt4 *iptables.IPTables
	ipt6 *iptables.IPTables
}

func (m *iptablesManager) open() error {
	if m.ipt4 != nil {
		return nil
	}
	v4, err := iptables.New()
	if err != nil {
		return fmt.Errorf("rules: iptables: %w", err)
	}
	v6, err := iptables.NewWithProtocol(iptables.ProtocolIPv6)
	if err != nil {
		return fmt.Errorf("rules: ip6tables: %w", err)
	}
	m.ipt4, m.ipt6 = v4, v6
	return nil
}

func isXtU32Loaded() bool {
	f, err := os.Open("/proc/modules")
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "xt_u32 ") {
			return true
		}
	}
	return false
}

func ensureXtU32() {
	before := isXtU32Loaded()
	_ = exec.Command("modprobe", "-q", "xt_u32").Run()
	if !before && isXtU32Loaded() {
		xtU32LoadedByUs.Store(true)
	}
}

// isU32Supported probes xt_u32 the way original_source's
// is_u32_supported/ensure_xt_u32 does: load the module, try a no-op
// rule in raw/PREROUTING, and remember whether it worked.
func (m *iptablesManager) isU32Supported() bool {
	ensureXtU32()
	if !isXtU32Loaded() {
		log.Warn("xt_u32 not supported")
		return false
	}

	rule := []string{"-m", "u32", "--u32", "0x0=0x0", "-j", "RETURN"}
	if err := m.ipt4.Insert("raw", "PREROUTING", 1, rule...); err != nil {
		return false
	}
	_ = m.ipt4.Delete("raw", "PREROUTING", rule...)
	return true
}

func (m *iptablesManager) Install() error {
	if err := m.open(); err != nil {
		return err
	}
	_ = m.cleanupLocked()

	mark := fmt.Sprintf("%#x", capture.InjectMark)
	rule := []string{"-p", "tcp", "--dport", "443", "-j", "NFQUEUE",
		"--queue-num", fmt.Sprint(m.cfg.QueueNum), "--queue-bypass"}

	u32Supported := m.isU32Supported()
	if u32Supported {
		const u32Expr = `0>>22&0x3C @ 12>>26&0x3C @ 0>>24&0xFF=0x16 && ` +
			`0>>22&0x3C @ 12>>26&0x3C @ 2&0xFF=0x01`
		rule = append(rule, "-m", "u32", "--u32", u32Expr)
	}
	fastPathAvailable.Store(u32Supported)

	for _, ipt := range []*iptables.IPTables{m.ipt4, m.ipt6} {
		if err := ipt.NewChain("mangle", dpibreakChain); err != nil {
			return fmt.Errorf("rules: iptables new-chain: %w", err)
		}
		if err := ipt.Insert("mangle", dpibreakChain, 1,
			"-m", "mark", "--mark", mark, "-j", "RETURN"); err != nil {
			return fmt.Errorf("rules: iptables mark rule: %w", err)
		}

		if m.cfg.FakeAutoTTL {
			synack := []string{"-p", "tcp", "--sport", "443", "-m", "tcp",
				"--tcp-flags", "SYN,ACK", "SYN,ACK", "-j", "NFQUEUE",
				"--queue-num", fmt.Sprint(m.cfg.QueueNum+1), "--queue-bypass"}
			if err := ipt.Append("mangle", dpibreakChain, synack...); err != nil {
				return fmt.Errorf("rules: iptables SYN/ACK rule: %w", err)
			}
			if err := ipt.Insert("mangle", "INPUT", 1, "-j", dpibreakChain); err != nil {
				return fmt.Errorf("rules: iptables INPUT jump: %w", err)
			}
		}

		if err := ipt.Append("mangle", dpibreakChain, rule...); err != nil {
			return fmt.Errorf("rules: iptables append: %w", err)
		}
		if err := ipt.Insert("mangle", "POSTROUTING", 1, "-j", dpibreakChain); err != nil {
			return fmt.Errorf("rules: iptables POSTROUTING jump: %w", err)
		}
	}

	return nil
}

func (m *iptablesManager) cleanupLocked() error {
	for _, ipt := range []*iptables.IPTables{m.ipt4, m.ipt6} {
		if ipt == nil {
			continue
		}
		_ = ipt.Delete("mangle", "POSTROUTING", "-j", dpibreakChain)
		if m.cfg.FakeAutoTTL {
			_ = ipt.Delete("mangle", "INPUT", "-j", dpibreakChain)
		}
		_ = ipt.ClearChain("mangle", dpibreakChain)
		_ = ipt.DeleteChain("mangle", dpibreakChain)
	}
	return nil
}

func (m *iptablesManager) Cleanup() error {
	if err := m.open(); err != nil {
		return err
	}
	if err := m.cleanupLocked(); err != nil {
		return err
	}
	if xtU32LoadedByUs.Load() {
		_ = exec.Command("modprobe", "-q", "-r", "xt_u32").Run()
	}
	return nil
}

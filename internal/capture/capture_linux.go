//go:build linux

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/florianl/go-nfqueue"
	"golang.org/x/sys/unix"
)

// InjectMark is the SO_MARK value stamped on every packet this
// process sends on its raw sockets. internal/rules installs a
// mark-based RETURN rule ahead of the NFQUEUE rule so marked packets
// are never re-captured (§4.7/§4.8/§6's loop-prevention requirement).
const InjectMark = 0x4449_4252 // "DIBR"

// queueItem is the channel payload bridging go-nfqueue's
// callback-driven API to the pull-style Capability interface.
type queueItem struct {
	payload []byte
	id      uint32
}

// NFQueueCapability captures via a Linux NFQUEUE binding
// (florianl/go-nfqueue) and injects via a pair of IP_HDRINCL raw
// sockets, one per address family, each behind its own mutex — the
// direct Go analogue of original_source/src/platform/linux.rs's
// RAW4/RAW6 LazyLock<Mutex<Socket>> pair.
type NFQueueCapability struct {
	nf *nfqueue.Nfqueue

	items chan queueItem

	raw4mu sync.Mutex
	raw4fd int
	raw6mu sync.Mutex
	raw6fd int
}

// New opens the platform capture/inject capability: NFQUEUE on
// queueNum plus the raw injector sockets.
func New(ctx context.Context, queueNum uint16) (Capability, error) {
	return NewNFQueueCapability(ctx, queueNum)
}

// NewNFQueueCapability opens queueNum and the raw injector sockets.
func NewNFQueueCapability(ctx context.Context, queueNum uint16) (*NFQueueCapability, error) {
	cfg := nfqueue.Config{
		NfQueue:      queueNum,
		MaxPacketLen: 0xFFFF,
		MaxQueueLen:  0xFF,
		Copymode:     nfqueue.NfQnlCopyPacket,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
	}

	nf, err := nfqueue.Open(&cfg)
	if err != nil {
		return nil, fmt.Errorf("capture: nfqueue open: %w", err)
	}

	c := &NFQueueCapability{
		nf:    nf,
		items: make(chan queueItem, 64),
	}

	hook := func(a nfqueue.Attribute) int {
		if a.PacketID == nil || a.Payload == nil {
			return 0
		}
		select {
		case c.items <- queueItem{payload: *a.Payload, id: *a.PacketID}:
		case <-ctx.Done():
		}
		return 0
	}
	errHook := func(e error) int { return 0 }

	if err := nf.RegisterWithErrorFunc(ctx, hook, errHook); err != nil {
		_ = nf.Close()
		return nil, fmt.Errorf("capture: nfqueue register: %w", err)
	}

	raw4, err := newRawSocket(unix.AF_INET)
	if err != nil {
		_ = nf.Close()
		return nil, err
	}
	raw6, err := newRawSocket(unix.AF_INET6)
	if err != nil {
		_ = nf.Close()
		unix.Close(raw4)
		return nil, err
	}

	c.raw4fd = raw4
	c.raw6fd = raw6
	return c, nil
}

func newRawSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return -1, fmt.Errorf("capture: raw socket: %w", err)
	}
	if family == unix.AF_INET {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
			unix.Close(fd)
			return -1, fmt.Errorf("capture: IP_HDRINCL: %w", err)
		}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_MARK, InjectMark); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("capture: SO_MARK: %w", err)
	}
	return fd, nil
}

func (c *NFQueueCapability) Pull(ctx context.Context) ([]byte, any, error) {
	select {
	case item := <-c.items:
		return item.payload, item.id, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (c *NFQueueCapability) Verdict(token any, v Verdict) error {
	id, _ := token.(uint32)
	switch v {
	case Drop:
		return c.nf.SetVerdict(id, nfqueue.NfDrop)
	default:
		return c.nf.SetVerdict(id, nfqueue.NfAccept)
	}
}

// Send writes pkt as a complete IP packet, switching raw socket on the
// IP version nibble the way original_source/src/platform/linux.rs's
// send_to_raw does.
func (c *NFQueueCapability) Send(pkt []byte) error {
	if len(pkt) < 1 {
		return fmt.Errorf("capture: empty packet")
	}

	version := pkt[0] >> 4
	if version == 4 {
		return c.sendV4(pkt)
	}
	return c.sendV6(pkt)
}

func (c *NFQueueCapability) sendV4(pkt []byte) error {
	if len(pkt) < 20 {
		return fmt.Errorf("capture: truncated IPv4 packet")
	}
	var dst [4]byte
	copy(dst[:], pkt[16:20])
	addr := unix.SockaddrInet4{Addr: dst}

	c.raw4mu.Lock()
	defer c.raw4mu.Unlock()
	return unix.Sendto(c.raw4fd, pkt, 0, &addr)
}

func (c *NFQueueCapability) sendV6(pkt []byte) error {
	if len(pkt) < 40 {
		return fmt.Errorf("capture: truncated IPv6 packet")
	}
	var dst [16]byte
	copy(dst[:], pkt[24:40])
	addr := unix.SockaddrInet6{Addr: dst}

	c.raw6mu.Lock()
	defer c.raw6mu.Unlock()
	return unix.Sendto(c.raw6fd, pkt, 0, &addr)
}

func (c *NFQueueCapability) Close() error {
	unix.Close(c.raw4fd)
	unix.Close(c.raw6fd)
	return c.nf.Close()
}

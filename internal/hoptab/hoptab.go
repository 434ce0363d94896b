// Package hoptab implements a fixed-capacity, open-addressed
// IP-to-hop-count cache populated from observed SYN/ACK TTLs and
// consulted to auto-pick a decoy packet's TTL.
package hoptab

import (
	"fmt"
	"math/bits"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// CAP is the table's fixed capacity; must be a power of two.
const CAP = 128

// StaleAge is the number of successful Put calls after which an entry
// becomes eligible for eviction even if it was never touched. It must
// not exceed CAP/2, so at least CAP-StaleAge entries are non-stale at
// any instant.
const StaleAge = 64

func init() {
	if CAP&(CAP-1) != 0 {
		panic("hoptab: CAP must be a power of two")
	}
	if StaleAge > CAP/2 {
		panic("hoptab: StaleAge must be <= CAP/2")
	}
}

// NotFoundError is returned by FindHop on a miss.
type NotFoundError struct {
	IP net.IP
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("hoptab: no entry for %s", e.IP)
}

// HopTab is a fixed-capacity open-addressed IP->hop-count cache. The
// zero value is not usable; construct with New. All operations are
// serialized under a single coarse mutex (§5: critical sections are
// O(CAP) worst case but bounded and free of I/O).
type HopTab struct {
	mu      sync.Mutex
	entries [CAP]hopEntry
	now     uint16
}

// New returns an empty HopTab.
func New() *HopTab {
	return &HopTab{}
}

// hash is the SplitMix64 finalizer, seeded by hi XOR rotl(lo, 13), as
// required by spec: any non-cryptographic hash with good mixing is
// acceptable, and this is the reference one.
func hash(k hopKey) uint64 {
	x := k.hi ^ bits.RotateLeft64(k.lo, 13)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// priority ranks a candidate slot for eviction during Put. Higher
// wins; see §4.2 of the spec for the exact ordering.
type priority int

const (
	priNone priority = iota + 1
	priTouched
	priStale
	priEmpty
	priMustUpdate
)

func classify(e hopEntry, key hopKey, now uint16) priority {
	if !e.occupied() {
		return priEmpty
	}
	if e.key == key {
		return priMustUpdate
	}
	if uint16(now-e.ts()) >= StaleAge {
		return priStale
	}
	if e.touched() {
		return priTouched
	}
	return priNone
}

// Put inserts or overwrites the (ip, hop) pair.
func (t *HopTab) Put(ip net.IP, hop uint8) {
	key := newHopKey(ip)

	t.mu.Lock()
	defer t.mu.Unlock()

	start := int(hash(key) & (CAP - 1))

	bestIdx := -1
	bestPri := priority(0)

	for i := 0; i < CAP; i++ {
		idx := (start + i) % CAP
		pri := classify(t.entries[idx], key, t.now)

		if pri > bestPri {
			bestPri, bestIdx = pri, idx
		}
		if pri == priMustUpdate || pri == priEmpty {
			break
		}
	}

	if bestIdx < 0 || bestPri <= priNone {
		logrus.WithFields(logrus.Fields{"pkg": "hoptab"}).Warn("table corrupted: no eviction candidate found")
		return
	}

	t.entries[bestIdx].occupy(key, hop, t.now)
	t.now++
}

// FindHop looks up ip, marking the serving slot TOUCHED on success.
func (t *HopTab) FindHop(ip net.IP) (uint8, error) {
	key := newHopKey(ip)

	t.mu.Lock()
	defer t.mu.Unlock()

	start := int(hash(key) & (CAP - 1))

	for i := 0; i < CAP; i++ {
		idx := (start + i) % CAP
		e := t.entries[idx]

		if !e.occupied() {
			break
		}
		if e.key == key {
			t.entries[idx].setTouched()
			return e.hop(), nil
		}
	}

	return 0, &NotFoundError{IP: ip}
}

// Occupied reports how many of the table's CAP slots currently hold an
// entry, for metrics exposition.
func (t *HopTab) Occupied() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for i := range t.entries {
		if t.entries[i].occupied() {
			n++
		}
	}
	return n
}

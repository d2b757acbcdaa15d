package core

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emberlink/ember/impl"
	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualClock is a hand-driven clock. Yield advances time by step and runs
// the onYield hook, which tests use to interleave peer nodes during bounded
// waits.
type manualClock struct {
	now     time.Time
	step    time.Duration
	onYield func()
}

func newManualClock() *manualClock {
	return &manualClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step: 10 * time.Millisecond,
	}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Yield() {
	c.now = c.now.Add(c.step)
	if c.onYield != nil {
		c.onYield()
	}
}

func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// memStore is an in-memory store port.
type memStore struct {
	nodeID   uint8
	parent   uint8
	distance uint8
	routes   map[uint8]uint8
}

func newMemStore() *memStore {
	return &memStore{
		nodeID:   state.AutoAddress,
		parent:   state.AutoAddress,
		distance: state.DistanceInvalid,
		routes:   make(map[uint8]uint8),
	}
}

func (s *memStore) LoadNodeID() (uint8, error)  { return s.nodeID, nil }
func (s *memStore) StoreNodeID(id uint8) error  { s.nodeID = id; return nil }
func (s *memStore) LoadParent() (uint8, uint8, error) {
	return s.parent, s.distance, nil
}
func (s *memStore) StoreParent(id, d uint8) error {
	s.parent, s.distance = id, d
	return nil
}
func (s *memStore) LoadRoute(dest uint8) (uint8, bool, error) {
	next, ok := s.routes[dest]
	return next, ok, nil
}
func (s *memStore) StoreRoute(dest, next uint8) error {
	s.routes[dest] = next
	return nil
}
func (s *memStore) ClearRoutes() error {
	s.routes = make(map[uint8]uint8)
	return nil
}

// scriptNode is a hand-scripted peer on the sim network, standing in for a
// gateway or repeater with fully controlled replies.
type scriptNode struct {
	t      *testing.T
	radio  *impl.SimRadio
	self   uint8
	handle func(n *scriptNode, m protocol.Message)
}

func newScriptNode(t *testing.T, net *impl.SimNetwork, self uint8, handle func(n *scriptNode, m protocol.Message)) *scriptNode {
	r := net.Join()
	r.Init()
	r.SetAddress(self)
	return &scriptNode{t: t, radio: r, self: self, handle: handle}
}

// pump drains the script node's fifo, dispatching each frame.
func (n *scriptNode) pump() {
	buf := make([]byte, protocol.HeaderLen+protocol.MaxPayload)
	for n.radio.Available() {
		cnt := n.radio.Receive(buf)
		if cnt <= 0 {
			return
		}
		m, err := protocol.Decode(buf[:cnt])
		if err != nil {
			continue
		}
		if n.handle != nil {
			n.handle(n, m)
		}
	}
}

// reply sends a frame back into the medium from this node.
func (n *scriptNode) reply(to uint8, m protocol.Message) {
	buf, err := protocol.Encode(m)
	if err != nil {
		n.t.Fatalf("script encode: %v", err)
	}
	n.radio.Send(to, buf)
}

// testNode bundles a transport with its ports.
type testNode struct {
	tr    *Transport
	net   *impl.SimNetwork
	radio *impl.SimRadio
	store *memStore
	clock *manualClock
}

func newTestNode(t *testing.T, net *impl.SimNetwork, cfg state.NodeCfg, clock *manualClock) *testNode {
	t.Helper()
	radio := net.Join()
	store := newMemStore()
	tr := NewTransport(cfg, radio, store, clock, nil, discardLogger())
	return &testNode{tr: tr, net: net, radio: radio, store: store, clock: clock}
}

// runUntil ticks the transport until cond holds or the budget of ticks is
// spent, advancing the clock between ticks.
func (n *testNode) runUntil(t *testing.T, tickAdvance time.Duration, maxTicks int, cond func() bool) bool {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if cond() {
			return true
		}
		n.tr.Process()
		if n.clock.onYield != nil {
			n.clock.onYield()
		}
		n.clock.advance(tickAdvance)
	}
	return cond()
}

func leafCfg() state.NodeCfg {
	return state.NodeCfg{
		NodeID:    state.AutoAddress,
		ParentID:  state.AutoAddress,
		StorePath: "unused",
	}
}

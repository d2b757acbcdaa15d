package core

import (
	"errors"
	"log/slog"
	"time"

	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
	"github.com/jellydator/ttlcache/v3"
)

var (
	ErrNotReady           = errors.New("transport not ready")
	ErrParentSearchActive = errors.New("parent search active")
	ErrSendFailed         = errors.New("send failed")
)

// Transport brings a node from power-on to a state in which application
// messages flow to and from the gateway, and keeps it there across lost
// parents and radio faults. It is single-threaded and cooperative: all work
// happens inside Process ticks driven by the caller.
type Transport struct {
	cfg   state.NodeCfg
	log   *slog.Logger
	radio state.Radio
	store state.Store
	clock state.Clock

	signer protocol.Signer

	status state.Status
	routes *RouteTable

	nodeID   uint8
	parent   uint8
	distance uint8

	tentativeParent   uint8
	tentativeDistance uint8

	// bounded-wait bookkeeping; set by transportWait, satisfied by the
	// FIFO dispatcher.
	waiting  bool
	waitCmd  uint8
	waitType uint8
	waitHit  bool

	// floodSeen suppresses re-forwarding a controlled-flood frame a
	// repeater already relayed.
	floodSeen *ttlcache.Cache[floodKey, struct{}]

	// nextAssign is the gateway's id allocation cursor.
	nextAssign uint8

	onReceive func(protocol.Message)

	inProcess bool
}

type floodKey struct {
	Sender uint8
	Type   uint8
}

func NewTransport(cfg state.NodeCfg, radio state.Radio, store state.Store, clock state.Clock, signer protocol.Signer, log *slog.Logger) *Transport {
	return &Transport{
		cfg:        cfg,
		log:        log,
		radio:      radio,
		store:      store,
		clock:      clock,
		signer:     signer,
		nodeID:     state.AutoAddress,
		parent:     state.AutoAddress,
		distance:   state.DistanceInvalid,
		nextAssign: 1,
		floodSeen: ttlcache.New[floodKey, struct{}](
			ttlcache.WithTTL[floodKey, struct{}](state.FloodDedupTTL),
			ttlcache.WithDisableTouchOnHit[floodKey, struct{}](),
		),
	}
}

// OnReceive registers the application callback for locally delivered
// messages. It runs inside Process.
func (t *Transport) OnReceive(fn func(protocol.Message)) {
	t.onReceive = fn
}

// Initialize enters the init state. It is idempotent: calling it on a
// running transport restarts the lifecycle.
func (t *Transport) Initialize() {
	t.routes = NewRouteTable(t.store, t.log)
	t.switchState(state.StateInit)
}

// Process runs one cooperative tick: drain the FIFO, then run the current
// state's update action. Re-entering Process from within itself is
// forbidden: a nested call logs an error and returns without doing work.
func (t *Transport) Process() {
	if t.inProcess {
		t.log.Error("transport: Process is not re-entrant, nested tick skipped")
		return
	}
	t.inProcess = true
	defer func() { t.inProcess = false }()

	t.processFIFO()
	t.updateState()
}

// Ready reports whether the transport is fully operational.
func (t *Transport) Ready() bool {
	return t.status.State == state.StateReady
}

// SearchingParent reports whether a parent search is in flight.
func (t *Transport) SearchingParent() bool {
	return t.status.FindingParent
}

// Send routes an application message, refusing unless the transport is
// ready.
func (t *Transport) Send(m protocol.Message) error {
	return t.sendRoute(m)
}

// ClearRoutingTable drops all persisted routes.
func (t *Transport) ClearRoutingTable() error {
	if t.routes == nil {
		return t.store.ClearRoutes()
	}
	if err := t.routes.Clear(); err != nil {
		return err
	}
	t.log.Info("routing table cleared")
	return nil
}

// Heartbeat returns the time spent in the current state.
func (t *Transport) Heartbeat() time.Duration {
	return t.timeInState()
}

// NodeID returns the node's current address.
func (t *Transport) NodeID() uint8 { return t.nodeID }

// Parent returns the current parent id and distance to the gateway.
func (t *Transport) Parent() (uint8, uint8) { return t.parent, t.distance }

// Status returns a copy of the state machine variables.
func (t *Transport) Status() state.Status { return t.status }

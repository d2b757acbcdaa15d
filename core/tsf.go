package core

import (
	"time"

	"github.com/emberlink/ember/perf"
	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
	"github.com/jellydator/ttlcache/v3"
)

// sendWrite encodes m and hands it to the radio, signing gateway-bound
// frames when a signer is configured.
func (t *Transport) sendWrite(to uint8, m protocol.Message) bool {
	if t.signer != nil && !m.Signed && m.Destination == state.GatewayAddress && t.signer.Enabled(m.Destination) {
		if err := t.signer.Sign(&m); err != nil {
			t.log.Error("tsf: sign fail", "error", err)
			return false
		}
	}
	buf, err := protocol.Encode(m)
	if err != nil {
		t.log.Error("tsf: encode fail", "error", err)
		return false
	}
	ok := t.radio.Send(to, buf)
	if ok {
		perf.SendsPerSecond.Add(1)
	} else {
		perf.SendFailures.Add(1)
	}
	return ok
}

// route sends m according to its destination: local delivery, broadcast, or
// unicast via the routing table with parent fallback. Send failures toward
// the parent feed the failed-uplink counter; successes reset it.
func (t *Transport) route(m protocol.Message) error {
	if m.Destination == t.nodeID && t.nodeID != state.BroadcastAddress {
		t.deliver(m)
		return nil
	}
	if t.status.FindingParent && m.Destination != state.BroadcastAddress {
		t.log.Warn("tsf: route refused, fpar active", "msg", m.String())
		return ErrParentSearchActive
	}
	m.Last = t.nodeID
	m.FailedTransmissions = t.status.FailedUplinkTransmissions

	if m.Destination == state.BroadcastAddress {
		m.Next = state.BroadcastAddress
		if !t.sendWrite(state.BroadcastAddress, m) {
			return ErrSendFailed
		}
		return nil
	}

	next, known := t.routes.Lookup(m.Destination, t.parent)
	if !known && m.Destination != t.parent && m.Destination != state.GatewayAddress {
		t.log.Debug("tsf: route dst unknown, via parent", "dst", m.Destination, "parent", t.parent)
	}
	m.Next = next

	ok := t.sendWrite(next, m)
	if next == t.parent {
		if ok {
			t.status.FailedUplinkTransmissions = 0
		} else if t.status.FailedUplinkTransmissions < t.cfg.MaxTransmissionFailures() {
			t.status.FailedUplinkTransmissions++
		}
	}
	if !ok {
		t.log.Warn("tsf: send fail", "msg", m.String())
		return ErrSendFailed
	}
	return nil
}

// sendRoute is the state-checked send used by the public API.
func (t *Transport) sendRoute(m protocol.Message) error {
	if t.status.State != state.StateReady {
		t.log.Warn("tsf: send refused, transport not ready")
		return ErrNotReady
	}
	return t.route(m)
}

// processFIFO drains at most MaxFIFOMsgs pending frames.
func (t *Transport) processFIFO() {
	buf := make([]byte, protocol.HeaderLen+protocol.MaxPayload)
	for i := 0; i < state.MaxFIFOMsgs && t.radio.Available(); i++ {
		n := t.radio.Receive(buf)
		if n <= 0 {
			return
		}
		t.processMessage(buf[:n])
	}
}

func (t *Transport) processMessage(frame []byte) {
	m, err := protocol.Decode(frame)
	if err != nil {
		t.log.Warn("tsf: msg dropped", "error", err)
		perf.DroppedFrames.Add(1)
		return
	}
	if m.Signed {
		if t.signer == nil || !t.signer.Verify(&m) {
			t.log.Warn("tsf: msg sign verify fail", "sender", m.Sender)
			perf.DroppedFrames.Add(1)
			return
		}
	}
	perf.RecvsPerSecond.Add(1)
	t.log.Debug("tsf: msg read", "msg", m.String())

	if m.IsAck {
		t.deliver(m)
		return
	}

	if m.Sender != state.GatewayAddress {
		t.routes.Learn(m.Sender, m.Last, t.nodeID)
	}

	broadcast := m.Destination == state.BroadcastAddress
	local := m.Destination == t.nodeID && !broadcast

	if !local && !broadcast {
		t.relay(m)
		return
	}

	if local && m.RequestAck {
		t.log.Debug("tsf: msg ack req", "sender", m.Sender)
		_ = t.route(m.Ack(t.nodeID))
	}

	if m.Command == protocol.CmdInternal {
		t.processInternal(m, broadcast)
	} else {
		t.deliver(m)
	}

	if t.waiting && m.Command == t.waitCmd && m.Type == t.waitType {
		t.waitHit = true
	}
}

func (t *Transport) processInternal(m protocol.Message, broadcast bool) {
	switch m.Type {
	case protocol.InternalFindParent:
		// only routing-capable, settled nodes answer
		if !t.cfg.Gateway && !(t.cfg.Repeater && t.status.State == state.StateReady) {
			return
		}
		if t.status.FindingParent {
			return
		}
		t.log.Debug("tsf: msg fpar req", "id", m.Sender)
		resp := protocol.NewInternal(t.nodeID, m.Sender, protocol.InternalFindParentResponse, t.distance)
		resp.Next = m.Last
		t.sendWrite(m.Last, resp)

	case protocol.InternalFindParentResponse:
		t.handleFindParentResponse(m)

	case protocol.InternalIDRequest:
		if t.cfg.Gateway {
			t.assignID(m)
		}

	case protocol.InternalIDResponse:
		if t.status.State == state.StateAcquireID && t.nodeID == state.AutoAddress {
			t.acceptNodeID(m.Byte(state.AutoAddress))
		}

	case protocol.InternalPing:
		t.log.Debug("tsf: msg pinged", "id", m.Sender, "hops", m.Byte(0))
		_ = t.route(protocol.NewInternal(t.nodeID, m.Sender, protocol.InternalPong, 1))

	case protocol.InternalPong:
		if t.status.PingActive {
			t.status.PingResponse = m.Byte(state.InvalidHops)
			t.status.PingActive = false
			t.log.Debug("tsf: msg pong recv", "hops", t.status.PingResponse)
		}

	case protocol.InternalHeartbeat:
		_ = t.route(protocol.NewInternal(t.nodeID, m.Sender, protocol.InternalHeartbeatResponse, m.Payload...))

	case protocol.InternalDiscover:
		if !t.cfg.Gateway {
			_ = t.route(protocol.NewInternal(t.nodeID, state.GatewayAddress, protocol.InternalDiscoverResponse, t.parent))
		}
		if broadcast {
			t.relayFlood(m)
		}

	default:
		t.deliver(m)
	}
}

func (t *Transport) handleFindParentResponse(m protocol.Message) {
	if !t.status.FindingParent {
		t.log.Debug("tsf: msg fpar inactive", "id", m.Sender)
		return
	}
	d := m.Byte(state.DistanceInvalid)
	t.log.Debug("tsf: msg fpar res", "id", m.Sender, "d", d)
	if d == state.DistanceInvalid {
		return
	}
	switch {
	case t.tentativeParent == state.AutoAddress:
		t.tentativeParent = m.Sender
		t.tentativeDistance = d
		if d == 0 {
			t.status.PreferredParentFound = true
			t.log.Debug("tsf: msg fpar pref found", "id", m.Sender)
		}
	case d == 0 || d < t.tentativeDistance:
		t.tentativeParent = m.Sender
		t.tentativeDistance = d
		t.status.PreferredParentFound = true
		t.log.Debug("tsf: msg fpar pref found", "id", m.Sender)
	}
}

// relay forwards a unicast frame addressed to another node. Only repeaters
// with an active transport carry foreign traffic.
func (t *Transport) relay(m protocol.Message) {
	if !t.cfg.Repeater || !t.status.TransportActive {
		t.log.Debug("tsf: msg rel norp", "dst", m.Destination)
		return
	}
	if m.Command == protocol.CmdInternal &&
		(m.Type == protocol.InternalPing || m.Type == protocol.InternalPong) {
		hops := m.Byte(state.InvalidHops)
		if hops >= state.MaxHops {
			return
		}
		m.Payload = []byte{hops + 1}
		t.log.Debug("tsf: msg rel pxng", "hops", hops+1)
	}
	if err := t.route(m); err != nil {
		t.log.Debug("tsf: msg rel fail", "dst", m.Destination, "error", err)
		return
	}
	perf.RelaysPerSecond.Add(1)
}

// relayFlood re-broadcasts a controlled-flood frame with a decremented hop
// budget. A ttl cache keeps one forward per (sender, type) within its ttl.
func (t *Transport) relayFlood(m protocol.Message) {
	if !t.cfg.Repeater || !t.status.TransportActive {
		return
	}
	hops := m.Byte(0)
	if hops == 0 {
		return
	}
	key := floodKey{Sender: m.Sender, Type: m.Type}
	if t.floodSeen.Get(key) != nil {
		return
	}
	t.floodSeen.Set(key, struct{}{}, ttlcache.DefaultTTL)
	fwd := m
	fwd.Last = t.nodeID
	fwd.Next = state.BroadcastAddress
	fwd.Payload = []byte{hops - 1}
	t.log.Debug("tsf: msg fwd bc", "sender", m.Sender, "hops", hops-1)
	t.sendWrite(state.BroadcastAddress, fwd)
}

func (t *Transport) deliver(m protocol.Message) {
	if t.onReceive != nil {
		t.onReceive(m)
	}
}

// transportWait drains the FIFO cooperatively for up to d, returning true
// once a frame with the requested command and type has been processed.
func (t *Transport) transportWait(d time.Duration, cmd, typ uint8) bool {
	start := t.clock.Now()
	t.waiting = true
	t.waitCmd = cmd
	t.waitType = typ
	t.waitHit = false
	defer func() { t.waiting = false }()
	for {
		t.processFIFO()
		if t.waitHit {
			return true
		}
		if t.clock.Now().Sub(start) >= d {
			return false
		}
		t.clock.Yield()
	}
}

// pingNode pings target and returns the pong hop count, or InvalidHops on
// timeout.
func (t *Transport) pingNode(target uint8) uint8 {
	t.log.Debug("tsf: ping send", "to", target)
	t.status.PingActive = true
	t.status.PingResponse = state.InvalidHops
	start := t.clock.Now()
	if err := t.route(protocol.NewInternal(t.nodeID, target, protocol.InternalPing, 1)); err != nil {
		t.status.PingActive = false
		return state.InvalidHops
	}
	if t.transportWait(state.PingTimeout, protocol.CmdInternal, protocol.InternalPong) {
		perf.UplinkPingRTT.Add(float64(t.clock.Now().Sub(start).Microseconds()))
	}
	t.status.PingActive = false
	return t.status.PingResponse
}

// checkUplink verifies the path to the gateway. Unless forced, checks
// within UplinkCheckInterval are flood-controlled and answered from the
// cached result. A replied ping re-learns the distance; a changed topology
// is logged and persisted.
func (t *Transport) checkUplink(force bool) bool {
	if t.cfg.Gateway {
		return true
	}
	now := t.clock.Now()
	if !force && now.Sub(t.status.LastUplinkCheck) < state.UplinkCheckInterval {
		t.log.Debug("tsf: chkupl ok, fctrl")
		return t.status.UplinkOk
	}
	hops := t.pingNode(state.GatewayAddress)
	t.status.LastUplinkCheck = t.clock.Now()
	if hops == state.InvalidHops {
		t.log.Warn("tsf: chkupl fail")
		perf.UplinkCheckFails.Add(1)
		t.status.UplinkOk = false
		return false
	}
	if hops != t.distance {
		t.log.Info("tsf: chkupl dgwc", "old", t.distance, "new", hops)
		t.distance = hops
		if err := t.store.StoreParent(t.parent, t.distance); err != nil {
			t.log.Warn("tsf: parent store failed", "error", err)
		}
	}
	t.log.Debug("tsf: chkupl ok")
	t.status.UplinkOk = true
	return true
}

// invokeSanityCheck probes the radio; a dead radio forces the failure
// state.
func (t *Transport) invokeSanityCheck() {
	if !t.radio.SanityCheck() {
		t.log.Error("tsf: sanchk fail")
		t.switchState(state.StateFailure)
		return
	}
	t.log.Debug("tsf: sanchk ok")
}

// assignID answers a gateway-side id request with the next free address.
func (t *Transport) assignID(m protocol.Message) {
	if t.nextAssign >= state.BroadcastAddress {
		t.log.Error("tsf: asid exhausted")
		return
	}
	id := t.nextAssign
	t.nextAssign++
	t.log.Info("tsf: asid ok", "id", id)
	resp := protocol.NewInternal(t.nodeID, state.BroadcastAddress, protocol.InternalIDResponse, id)
	resp.Next = state.BroadcastAddress
	t.sendWrite(state.BroadcastAddress, resp)
}

// acceptNodeID validates and installs a controller-assigned id.
func (t *Transport) acceptNodeID(id uint8) {
	if id == state.GatewayAddress || id == state.AutoAddress ||
		(!t.cfg.AutoParent() && id == t.cfg.ParentID) {
		t.log.Error("tsf: asid fail", "id", id)
		t.switchState(state.StateFailure)
		return
	}
	t.nodeID = id
	if err := t.store.StoreNodeID(id); err != nil {
		t.log.Warn("tsf: node id store failed", "error", err)
	}
	t.radio.SetAddress(id)
	t.log.Info("tsf: asid ok", "id", id)
}

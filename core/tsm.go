package core

import (
	"time"

	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
)

// Each state is a pair of actions: transition runs once on entry, update
// runs on every Process tick until the state changes.
type stateActions struct {
	transition func(*Transport)
	update     func(*Transport)
}

var stateTable map[state.TransportState]stateActions

func init() {
	stateTable = map[state.TransportState]stateActions{
		state.StateInit:       {(*Transport).initTransition, nil},
		state.StateFindParent: {(*Transport).findParentTransition, (*Transport).findParentUpdate},
		state.StateAcquireID:  {(*Transport).acquireIDTransition, (*Transport).acquireIDUpdate},
		state.StateUplink:     {(*Transport).uplinkTransition, (*Transport).uplinkUpdate},
		state.StateReady:      {(*Transport).readyTransition, (*Transport).readyUpdate},
		state.StateFailure:    {(*Transport).failureTransition, (*Transport).failureUpdate},
	}
}

// switchState enters next, running its transition. Re-entering the current
// state counts as a retry; entering a different state resets the counter.
func (t *Transport) switchState(next state.TransportState) {
	if next == t.status.State && t.status.StateEnter != (time.Time{}) {
		if t.status.Retries < state.StateRetries {
			t.status.Retries++
		}
	} else {
		t.status.Retries = 0
	}
	t.status.State = next
	t.status.StateEnter = t.clock.Now()
	t.log.Info("tsm: " + next.String())
	if tr := stateTable[next].transition; tr != nil {
		tr(t)
	}
}

func (t *Transport) updateState() {
	if up := stateTable[t.status.State].update; up != nil {
		up(t)
	}
}

func (t *Transport) timeInState() time.Duration {
	return t.clock.Now().Sub(t.status.StateEnter)
}

// retryOrFail re-enters the current state until the retry budget is spent,
// then sinks into failure.
func (t *Transport) retryOrFail() {
	if t.status.Retries < state.StateRetries {
		t.switchState(t.status.State)
	} else {
		t.switchState(state.StateFailure)
	}
}

func (t *Transport) initTransition() {
	t.status.FindingParent = false
	t.status.PreferredParentFound = false
	t.status.UplinkOk = false
	t.status.PingActive = false
	t.status.TransportActive = false
	t.status.FailedUplinkTransmissions = 0
	t.status.PingResponse = state.InvalidHops

	if !t.radio.Init() {
		t.log.Error("tsm: init tsp fail")
		t.switchState(state.StateFailure)
		return
	}

	t.nodeID = t.cfg.NodeID
	if t.cfg.Gateway {
		t.nodeID = state.GatewayAddress
	} else if t.nodeID == state.AutoAddress {
		if id, err := t.store.LoadNodeID(); err == nil && id != state.GatewayAddress && id != state.AutoAddress {
			t.nodeID = id
		}
	} else {
		t.log.Info("tsm: init statid", "id", t.nodeID)
	}
	t.radio.SetAddress(t.nodeID)
	t.log.Info("tsm: init tsp ok", "id", t.nodeID)

	if t.cfg.Gateway {
		t.parent = state.GatewayAddress
		t.distance = 0
		t.log.Info("tsm: init gw mode")
		t.switchState(state.StateReady)
		return
	}
	t.switchState(state.StateFindParent)
}

func (t *Transport) findParentTransition() {
	t.status.PreferredParentFound = false
	t.status.FindingParent = false
	t.status.FailedUplinkTransmissions = 0

	if !t.cfg.AutoParent() {
		t.parent = t.cfg.ParentID
		if id, d, err := t.store.LoadParent(); err == nil && id == t.parent {
			t.distance = d
		} else {
			t.distance = state.MaxHops
		}
		t.log.Info("tsm: fpar statp", "id", t.parent)
		t.switchState(state.StateAcquireID)
		return
	}

	t.tentativeParent = state.AutoAddress
	t.tentativeDistance = state.DistanceInvalid
	t.status.FindingParent = true
	req := protocol.NewInternal(t.nodeID, state.BroadcastAddress, protocol.InternalFindParent)
	if err := t.route(req); err != nil {
		t.log.Warn("tsm: fpar req send fail", "error", err)
	}
}

func (t *Transport) findParentUpdate() {
	if !t.status.PreferredParentFound && t.timeInState() < state.StateTimeout {
		return
	}
	t.status.FindingParent = false
	if t.tentativeParent == state.AutoAddress {
		t.log.Warn("tsm: fpar no reply")
		t.retryOrFail()
		return
	}
	t.parent = t.tentativeParent
	t.distance = t.tentativeDistance + 1
	if err := t.store.StoreParent(t.parent, t.distance); err != nil {
		t.log.Warn("tsm: parent store failed", "error", err)
	}
	t.log.Info("tsm: fpar ok", "id", t.parent, "d", t.distance)
	t.switchState(state.StateAcquireID)
}

func (t *Transport) acquireIDTransition() {
	if t.nodeID != state.AutoAddress && t.nodeID != state.GatewayAddress {
		t.log.Info("tsm: id ok", "id", t.nodeID)
		t.switchState(state.StateUplink)
		return
	}
	t.log.Info("tsm: id req")
	req := protocol.NewInternal(t.nodeID, state.GatewayAddress, protocol.InternalIDRequest)
	if err := t.route(req); err != nil {
		t.log.Warn("tsm: id req send fail", "error", err)
	}
}

func (t *Transport) acquireIDUpdate() {
	if t.nodeID != state.AutoAddress && t.nodeID != state.GatewayAddress {
		t.switchState(state.StateUplink)
		return
	}
	if t.timeInState() >= state.StateTimeout {
		t.log.Warn("tsm: id no reply")
		t.retryOrFail()
	}
}

func (t *Transport) uplinkTransition() {
	t.status.UplinkOk = t.checkUplink(true)
}

func (t *Transport) uplinkUpdate() {
	if t.status.UplinkOk {
		t.log.Info("tsm: upl ok")
		t.switchState(state.StateReady)
		return
	}
	t.log.Warn("tsm: upl fail")
	t.retryOrFail()
}

func (t *Transport) readyTransition() {
	t.status.TransportActive = true
	t.status.UplinkOk = true
	t.status.Retries = 0
	t.status.FailedUplinkTransmissions = 0
	t.log.Info("tsm: ready", "id", t.nodeID, "parent", t.parent, "d", t.distance)
}

func (t *Transport) readyUpdate() {
	if t.status.FailedUplinkTransmissions >= t.cfg.MaxTransmissionFailures() {
		if t.cfg.AutoParent() {
			t.log.Warn("tsm: ready upl fail, snp")
			t.switchState(state.StateFindParent)
			return
		}
		t.log.Warn("tsm: ready upl fail, statp")
		t.status.FailedUplinkTransmissions = 0
	}

	now := t.clock.Now()
	if !t.cfg.Gateway && now.Sub(t.status.LastUplinkCheck) >= state.UplinkCheckInterval {
		if !t.checkUplink(false) {
			// a silent gateway counts against the uplink like a failed
			// transmission does
			if t.status.FailedUplinkTransmissions < t.cfg.MaxTransmissionFailures() {
				t.status.FailedUplinkTransmissions++
			}
		}
	}
	if now.Sub(t.status.LastSanityCheck) >= state.SanityCheckInterval {
		t.status.LastSanityCheck = now
		t.invokeSanityCheck()
		t.floodSeen.DeleteExpired()
	}
}

func (t *Transport) failureTransition() {
	t.status.UplinkOk = false
	t.status.TransportActive = false
	t.status.FindingParent = false
	t.log.Error("tsm: failure pdt")
	t.radio.PowerDown()
}

func (t *Transport) failureUpdate() {
	if t.timeInState() >= state.FailureStateTimeout {
		t.log.Info("tsm: failure re-init")
		t.switchState(state.StateInit)
	}
}

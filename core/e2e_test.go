package core

import (
	"testing"
	"time"

	"github.com/emberlink/ember/impl"
	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEndToEndGatewayAndLeaf runs two full transports against the same
// medium: the leaf joins the gateway's mesh, acquires an id, and traffic
// flows both ways.
func TestEndToEndGatewayAndLeaf(t *testing.T) {
	net := impl.NewSimNetwork()
	clock := newManualClock()

	gwCfg := state.NodeCfg{Gateway: true, NodeID: state.GatewayAddress, ParentID: state.AutoAddress, StorePath: "unused"}
	gw := newTestNode(t, net, gwCfg, clock)
	var atGateway []protocol.Message
	gw.tr.OnReceive(func(m protocol.Message) { atGateway = append(atGateway, m) })

	leaf := newTestNode(t, net, leafCfg(), clock)
	var atLeaf []protocol.Message
	leaf.tr.OnReceive(func(m protocol.Message) { atLeaf = append(atLeaf, m) })

	clock.onYield = func() { gw.tr.Process() }

	gw.tr.Initialize()
	require.True(t, gw.tr.Ready())
	leaf.tr.Initialize()

	ok := leaf.runUntil(t, 20*time.Millisecond, 500, leaf.tr.Ready)
	require.True(t, ok, "leaf never became ready")

	assert.Equal(t, uint8(1), leaf.tr.NodeID(), "gateway hands out the first free id")
	parent, distance := leaf.tr.Parent()
	assert.Equal(t, state.GatewayAddress, parent)
	assert.Equal(t, uint8(1), distance)
	assert.Equal(t, uint8(1), leaf.store.nodeID)

	// uplink: leaf application data reaches the gateway
	up := protocol.Message{
		Sender: leaf.tr.NodeID(), Destination: state.GatewayAddress,
		Version: protocol.Version, Command: protocol.CmdSet,
		PayloadType: protocol.PayloadByte, Sensor: 1, Payload: []byte{42},
	}
	require.NoError(t, leaf.tr.Send(up))
	gw.tr.Process()
	require.NotEmpty(t, atGateway)
	got := atGateway[len(atGateway)-1]
	assert.Equal(t, protocol.CmdSet, got.Command)
	assert.Equal(t, []byte{42}, got.Payload)
	assert.Equal(t, leaf.tr.NodeID(), got.Sender)

	// downlink: the gateway learned the leaf's route from its traffic
	down := protocol.Message{
		Sender: state.GatewayAddress, Destination: leaf.tr.NodeID(),
		Version: protocol.Version, Command: protocol.CmdReq,
		PayloadType: protocol.PayloadByte, Sensor: 1, Payload: []byte{7},
	}
	require.NoError(t, gw.tr.Send(down))
	leaf.tr.Process()
	require.NotEmpty(t, atLeaf)
	assert.Equal(t, protocol.CmdReq, atLeaf[len(atLeaf)-1].Command)

	// the leaf's heartbeat runs from state entry
	clock.advance(time.Second)
	assert.GreaterOrEqual(t, leaf.tr.Heartbeat(), time.Second)
}

func TestEndToEndHeartbeatAnswered(t *testing.T) {
	net := impl.NewSimNetwork()
	clock := newManualClock()

	gwCfg := state.NodeCfg{Gateway: true, NodeID: state.GatewayAddress, ParentID: state.AutoAddress, StorePath: "unused"}
	gw := newTestNode(t, net, gwCfg, clock)
	leaf := newTestNode(t, net, leafCfg(), clock)

	clock.onYield = func() { gw.tr.Process() }
	gw.tr.Initialize()
	leaf.tr.Initialize()
	require.True(t, leaf.runUntil(t, 20*time.Millisecond, 500, leaf.tr.Ready))

	var responses []protocol.Message
	gw.tr.OnReceive(func(m protocol.Message) {
		if m.Command == protocol.CmdInternal && m.Type == protocol.InternalHeartbeatResponse {
			responses = append(responses, m)
		}
	})

	// gateway probes the leaf
	hb := protocol.NewInternal(state.GatewayAddress, leaf.tr.NodeID(), protocol.InternalHeartbeat)
	require.NoError(t, gw.tr.Send(hb))
	leaf.tr.Process()
	gw.tr.Process()
	require.Len(t, responses, 1)
	assert.Equal(t, leaf.tr.NodeID(), responses[0].Sender)
}

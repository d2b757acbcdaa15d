package state

import "time"

const (
	// GatewayAddress is the root of the tree.
	GatewayAddress uint8 = 0
	// BroadcastAddress doubles as the AUTO sentinel for unassigned ids
	// and parents.
	BroadcastAddress uint8 = 255
	AutoAddress      uint8 = 255
	DistanceInvalid  uint8 = 255
	InvalidHops      uint8 = 255
	MaxHops          uint8 = 254
)

var (
	StateTimeout        = 2 * time.Second
	FailureStateTimeout = 10 * time.Second
	PingTimeout         = 2 * time.Second

	// UplinkCheckInterval rate-limits gateway pings so a large network
	// does not flood the uplink.
	UplinkCheckInterval = 10 * time.Second
	SanityCheckInterval = 60 * time.Second

	StateRetries = uint8(3)

	// MaxFIFOMsgs bounds the frames drained per Process call so a flooding
	// radio cannot starve the state machine.
	MaxFIFOMsgs = 5

	TransmissionFailures         = uint8(5)
	TransmissionFailuresRepeater = uint8(10)

	// FloodDedupTTL is how long a repeater remembers a controlled-flood
	// frame it already forwarded.
	FloodDedupTTL = 10 * time.Second

	TickInterval = 10 * time.Millisecond
)

package state

import (
	"context"
	"log/slog"
	"time"
)

type TransportState uint8

const (
	StateInit TransportState = iota
	StateFindParent
	StateAcquireID
	StateUplink
	StateReady
	StateFailure
)

func (s TransportState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFindParent:
		return "find-parent"
	case StateAcquireID:
		return "acquire-id"
	case StateUplink:
		return "uplink"
	case StateReady:
		return "ready"
	case StateFailure:
		return "failure"
	}
	return "unknown"
}

// Status holds the transport state machine variables. Access must be done
// only on the goroutine that drives Process.
type Status struct {
	State           TransportState
	StateEnter      time.Time
	LastUplinkCheck time.Time
	LastSanityCheck time.Time

	FindingParent        bool
	PreferredParentFound bool
	UplinkOk             bool
	PingActive           bool
	TransportActive      bool

	Retries                   uint8
	FailedUplinkTransmissions uint8

	// PingResponse stores the hop count of the last pong, or InvalidHops
	// when no reply arrived in time.
	PingResponse uint8
}

// Env can be read from any goroutine.
type Env struct {
	Context context.Context
	Cancel  context.CancelCauseFunc
	Cfg     NodeCfg
	Log     *slog.Logger
}

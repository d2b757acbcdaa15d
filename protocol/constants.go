package protocol

// Version is the protocol generation carried in every header. Frames built
// by a different generation are rejected at decode time.
const Version uint8 = 2

// HeaderLen is the fixed wire header size.
const HeaderLen = 7

// MaxPayload fits a full frame into a 32-byte radio MTU.
const MaxPayload = 25

// MACLen is the truncated keyed-MAC length appended to signed payloads.
const MACLen = 16

// Commands.
const (
	CmdPresentation uint8 = iota
	CmdSet
	CmdReq
	CmdInternal
	CmdStream
)

// Internal message types (CmdInternal).
const (
	InternalBatteryLevel uint8 = iota
	InternalTime
	InternalVersion
	InternalIDRequest
	InternalIDResponse
	InternalInclusionMode
	InternalConfig
	InternalFindParent
	InternalFindParentResponse
	InternalLogMessage
	InternalChildren
	InternalSketchName
	InternalSketchVersion
	InternalReboot
	InternalGatewayReady
	InternalSigningPresentation
	InternalGetNonce
	InternalGetNonceResponse
	InternalHeartbeat
	InternalPresentation
	InternalDiscover
	InternalDiscoverResponse
	InternalHeartbeatResponse
	InternalLocked
	InternalPing
	InternalPong
)

// Payload types.
const (
	PayloadString uint8 = iota
	PayloadByte
	PayloadInt16
	PayloadUint16
	PayloadInt32
	PayloadUint32
	PayloadCustom
	PayloadFloat32
)

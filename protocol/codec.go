package protocol

import (
	"errors"
	"fmt"
)

// Wire layout, 7 header bytes followed by the payload:
//
//	0 last hop
//	1 sender
//	2 destination
//	3 version (2 bits) | signed (1 bit) | payload length (5 bits)
//	4 command (3 bits) | request-ack (1 bit) | is-ack (1 bit) | payload type (3 bits)
//	5 type
//	6 sensor
const (
	offLast = iota
	offSender
	offDestination
	offVersionLength
	offCommandAckPayload
	offType
	offSensor
)

var (
	ErrFrameTooShort  = errors.New("frame shorter than header")
	ErrPayloadTooLong = errors.New("payload exceeds frame capacity")
	ErrTruncated      = errors.New("frame truncated")
)

// VersionError reports a frame built by a different protocol generation.
type VersionError struct {
	Got, Want uint8
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("protocol version mismatch: %d != %d", e.Got, e.Want)
}

// Encode emits the wire image of m.
func Encode(m Message) ([]byte, error) {
	if len(m.Payload) > MaxPayload {
		return nil, ErrPayloadTooLong
	}
	buf := make([]byte, HeaderLen+len(m.Payload))
	buf[offLast] = m.Last
	buf[offSender] = m.Sender
	buf[offDestination] = m.Destination

	vl := m.Version & 0x03
	if m.Signed {
		vl |= 0x04
	}
	vl |= uint8(len(m.Payload)) << 3
	buf[offVersionLength] = vl

	cab := m.Command & 0x07
	if m.RequestAck {
		cab |= 0x08
	}
	if m.IsAck {
		cab |= 0x10
	}
	cab |= m.PayloadType << 5
	buf[offCommandAckPayload] = cab

	buf[offType] = m.Type
	buf[offSensor] = m.Sensor
	copy(buf[HeaderLen:], m.Payload)
	return buf, nil
}

// Decode parses a wire image. Frames whose protocol version differs from
// this build are rejected with a VersionError.
func Decode(buf []byte) (Message, error) {
	if len(buf) < HeaderLen {
		return Message{}, ErrFrameTooShort
	}
	vl := buf[offVersionLength]
	m := Message{
		Last:        buf[offLast],
		Sender:      buf[offSender],
		Destination: buf[offDestination],
		Version:     vl & 0x03,
		Signed:      vl&0x04 != 0,
		Type:        buf[offType],
		Sensor:      buf[offSensor],
	}
	if m.Version != Version {
		return Message{}, &VersionError{Got: m.Version, Want: Version}
	}
	cab := buf[offCommandAckPayload]
	m.Command = cab & 0x07
	m.RequestAck = cab&0x08 != 0
	m.IsAck = cab&0x10 != 0
	m.PayloadType = cab >> 5

	length := int(vl >> 3)
	if len(buf) < HeaderLen+length {
		return Message{}, ErrTruncated
	}
	m.Payload = append([]byte(nil), buf[HeaderLen:HeaderLen+length]...)
	return m, nil
}

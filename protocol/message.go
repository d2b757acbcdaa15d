package protocol

import "fmt"

// Message is the in-memory form of a frame. Next and FailedTransmissions
// never reach the wire: the next hop is the radio address the frame is sent
// to, and the counter only decorates the send log line.
type Message struct {
	Last        uint8
	Sender      uint8
	Destination uint8

	Version uint8
	Signed  bool

	Command     uint8
	RequestAck  bool
	IsAck       bool
	PayloadType uint8

	Type    uint8
	Sensor  uint8
	Payload []byte

	Next                uint8
	FailedTransmissions uint8
}

// NewInternal builds an internal control message.
func NewInternal(sender, dest, typ uint8, payload ...byte) Message {
	return Message{
		Last:        sender,
		Sender:      sender,
		Destination: dest,
		Version:     Version,
		Command:     CmdInternal,
		PayloadType: PayloadByte,
		Type:        typ,
		Payload:     payload,
	}
}

// Ack returns the echo acknowledgement for m, addressed back at the sender.
func (m Message) Ack(self uint8) Message {
	ack := m
	ack.Last = self
	ack.Sender = self
	ack.Destination = m.Sender
	ack.RequestAck = false
	ack.IsAck = true
	return ack
}

// Byte returns the first payload byte, or def when the payload is empty.
func (m Message) Byte(def uint8) uint8 {
	if len(m.Payload) == 0 {
		return def
	}
	return m.Payload[0]
}

func (m Message) String() string {
	return fmt.Sprintf("%d-%d-%d-%d s=%d c=%d t=%d pt=%d l=%d sg=%t ft=%d",
		m.Sender, m.Last, m.Next, m.Destination,
		m.Sensor, m.Command, m.Type, m.PayloadType, len(m.Payload), m.Signed, m.FailedTransmissions)
}

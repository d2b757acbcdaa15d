package protocol

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/blake2s"
)

var ErrPayloadUnsignable = errors.New("payload too long to sign")

// Signer authenticates frames between peers that share a key. Sign appends
// a MAC to the payload and sets the signed bit; Verify checks and strips it.
type Signer interface {
	// Enabled reports whether frames to/from peer are signed.
	Enabled(peer uint8) bool
	Sign(m *Message) error
	Verify(m *Message) bool
}

// KeyedSigner signs with a truncated keyed blake2s MAC over the identity
// and content fields of the header plus the payload.
type KeyedSigner struct {
	key []byte
}

func NewKeyedSigner(key []byte) (*KeyedSigner, error) {
	if len(key) != 32 {
		return nil, errors.New("signing key must be 32 bytes")
	}
	return &KeyedSigner{key: key}, nil
}

func (s *KeyedSigner) Enabled(peer uint8) bool { return true }

func (s *KeyedSigner) mac(m *Message, payload []byte) []byte {
	h, _ := blake2s.New256(s.key)
	h.Write([]byte{m.Sender, m.Destination, m.Command, m.Type, m.Sensor, m.PayloadType})
	h.Write(payload)
	return h.Sum(nil)[:MACLen]
}

func (s *KeyedSigner) Sign(m *Message) error {
	if len(m.Payload) > MaxPayload-MACLen {
		return ErrPayloadUnsignable
	}
	m.Payload = append(m.Payload, s.mac(m, m.Payload)...)
	m.Signed = true
	return nil
}

func (s *KeyedSigner) Verify(m *Message) bool {
	if !m.Signed || len(m.Payload) < MACLen {
		return false
	}
	split := len(m.Payload) - MACLen
	payload, mac := m.Payload[:split], m.Payload[split:]
	if subtle.ConstantTimeCompare(mac, s.mac(m, payload)) != 1 {
		return false
	}
	m.Payload = payload
	m.Signed = false
	return true
}

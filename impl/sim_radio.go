package impl

import (
	"sync"

	"github.com/emberlink/ember/state"
)

// SimNetwork is an in-memory shared radio medium. Every SimRadio joined to
// it hears unicast frames addressed to it and all broadcasts. A drop rule
// can sever individual links to model range and interference.
type SimNetwork struct {
	mu     sync.Mutex
	radios []*SimRadio

	// Drop, when set, discards frames from -> to before delivery.
	Drop func(from, to uint8) bool
}

func NewSimNetwork() *SimNetwork {
	return &SimNetwork{}
}

// Join creates a radio attached to the network.
func (n *SimNetwork) Join() *SimRadio {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := &SimRadio{
		net:     n,
		address: state.AutoAddress,
		alive:   true,
	}
	n.radios = append(n.radios, r)
	return r
}

func (n *SimNetwork) send(from *SimRadio, to uint8, data []byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if to == state.BroadcastAddress {
		for _, r := range n.radios {
			if r == from || !r.alive {
				continue
			}
			if n.Drop != nil && n.Drop(from.address, r.address) {
				continue
			}
			r.push(data)
		}
		return true
	}
	for _, r := range n.radios {
		if r == from || !r.alive || r.address != to {
			continue
		}
		if n.Drop != nil && n.Drop(from.address, to) {
			return false
		}
		r.push(data)
		return true
	}
	return false
}

// SimRadio implements the radio port against a SimNetwork.
type SimRadio struct {
	net     *SimNetwork
	address uint8
	fifo    [][]byte
	alive   bool

	// FailInit and FailSanity force the corresponding probes to report a
	// broken radio.
	FailInit   bool
	FailSanity bool
}

const simFIFODepth = 16

func (r *SimRadio) push(data []byte) {
	if len(r.fifo) >= simFIFODepth {
		return // hardware fifo overrun, frame lost
	}
	r.fifo = append(r.fifo, append([]byte(nil), data...))
}

func (r *SimRadio) Init() bool {
	if r.FailInit {
		return false
	}
	r.alive = true
	return true
}

func (r *SimRadio) SetAddress(addr uint8) {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	r.address = addr
}

func (r *SimRadio) Address() uint8 {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	return r.address
}

func (r *SimRadio) Send(to uint8, data []byte) bool {
	if !r.alive {
		return false
	}
	return r.net.send(r, to, data)
}

func (r *SimRadio) Available() bool {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	return len(r.fifo) > 0
}

func (r *SimRadio) Receive(buf []byte) int {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	if len(r.fifo) == 0 {
		return 0
	}
	frame := r.fifo[0]
	r.fifo = r.fifo[1:]
	return copy(buf, frame)
}

func (r *SimRadio) SanityCheck() bool {
	return r.alive && !r.FailSanity
}

func (r *SimRadio) PowerDown() {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	r.alive = false
	r.fifo = nil
}

// Inject queues a raw frame into the radio's fifo, bypassing the medium.
func (r *SimRadio) Inject(data []byte) {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	r.push(data)
}

// Pending returns the number of queued inbound frames.
func (r *SimRadio) Pending() int {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	return len(r.fifo)
}

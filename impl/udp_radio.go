package impl

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
)

// UDPRadio carries frames over UDP between a statically configured set of
// peers, standing in for a real radio on development hosts. Broadcast is a
// unicast fan-out to every peer. Reception runs on an internal goroutine
// and surfaces only through Available/Receive, like an interrupt-driven
// driver would.
type UDPRadio struct {
	listen  string
	peers   map[uint8]*net.UDPAddr
	log     *slog.Logger
	conn    *net.UDPConn
	fifo    chan []byte
	address uint8
}

func NewUDPRadio(listen string, peers map[uint8]string, log *slog.Logger) (*UDPRadio, error) {
	if listen == "" {
		return nil, fmt.Errorf("udp radio requires a listen address")
	}
	resolved := make(map[uint8]*net.UDPAddr, len(peers))
	for id, addr := range peers {
		ua, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("peer %d: %w", id, err)
		}
		resolved[id] = ua
	}
	return &UDPRadio{
		listen:  listen,
		peers:   resolved,
		log:     log,
		address: state.AutoAddress,
	}, nil
}

func (r *UDPRadio) Init() bool {
	if r.conn != nil {
		return true
	}
	addr, err := net.ResolveUDPAddr("udp", r.listen)
	if err != nil {
		r.log.Error("udp radio resolve failed", "error", err)
		return false
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		r.log.Error("udp radio listen failed", "error", err)
		return false
	}
	r.conn = conn
	r.fifo = make(chan []byte, 64)
	go r.reader(conn, r.fifo)
	return true
}

func (r *UDPRadio) reader(conn *net.UDPConn, fifo chan []byte) {
	buf := make([]byte, protocol.HeaderLen+protocol.MaxPayload)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame := append([]byte(nil), buf[:n]...)
		select {
		case fifo <- frame:
		default:
			// fifo overrun, frame lost
		}
	}
}

func (r *UDPRadio) SetAddress(addr uint8) { r.address = addr }

func (r *UDPRadio) Address() uint8 { return r.address }

func (r *UDPRadio) Send(to uint8, data []byte) bool {
	if r.conn == nil {
		return false
	}
	if to == state.BroadcastAddress {
		for _, peer := range r.peers {
			_, _ = r.conn.WriteToUDP(data, peer)
		}
		return true
	}
	peer, ok := r.peers[to]
	if !ok {
		return false
	}
	_, err := r.conn.WriteToUDP(data, peer)
	return err == nil
}

func (r *UDPRadio) Available() bool { return r.conn != nil && len(r.fifo) > 0 }

func (r *UDPRadio) Receive(buf []byte) int {
	select {
	case frame := <-r.fifo:
		return copy(buf, frame)
	default:
		return 0
	}
}

func (r *UDPRadio) SanityCheck() bool { return r.conn != nil }

func (r *UDPRadio) PowerDown() {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

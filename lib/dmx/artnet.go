package dmx

import (
	"fmt"
	"net"
	"syscall"
	"time"
)

const (
	artnetPort = 6454

	opDMX       = 0x5000
	opPoll      = 0x2000
	opPollReply = 0x2100

	protocolVersion = 14
)

var artnetID = []byte("Art-Net\x00")

// ArtNet broadcasts ArtDMX frames over UDP. The sequence byte increments per
// frame so receivers can detect reordering.
type ArtNet struct {
	Frame

	IP       string
	Universe uint16

	conn *net.UDPConn
	dest *net.UDPAddr
	seq  uint8
}

func NewArtNet(ip string, universe uint16) *ArtNet {
	return &ArtNet{IP: ip, Universe: universe}
}

func (a *ArtNet) Start() error {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return fmt.Errorf("artnet: listen: %w", err)
	}
	if raw, err := conn.SyscallConn(); err == nil {
		raw.Control(func(fd uintptr) {
			syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		})
	}

	ip := net.ParseIP(a.IP)
	if ip == nil {
		ip = net.IPv4bcast
	}

	a.conn = conn
	a.dest = &net.UDPAddr{IP: ip, Port: artnetPort}
	a.seq = 1
	return nil
}

func (a *ArtNet) Stop() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func (a *ArtNet) Send() error {
	if a.conn == nil {
		return nil
	}
	data := a.Snapshot()
	packet := buildArtDMX(a.seq, a.Universe, data[:])
	a.seq++
	if a.seq == 0 {
		a.seq = 1
	}
	if _, err := a.conn.WriteToUDP(packet, a.dest); err != nil {
		return fmt.Errorf("artnet: send: %w", err)
	}
	return nil
}

func (a *ArtNet) Blackout() error {
	a.Zero()
	return a.Send()
}

func buildArtDMX(seq uint8, universe uint16, payload []byte) []byte {
	packet := make([]byte, 18+len(payload))
	copy(packet, artnetID)
	packet[8], packet[9] = byte(opDMX&0xFF), byte(opDMX>>8)
	packet[10], packet[11] = 0, protocolVersion
	packet[12], packet[13] = seq, 0 // sequence, physical port
	packet[14] = byte(universe & 0xFF)
	packet[15] = byte((universe >> 8) & 0x7F)
	packet[16] = byte(len(payload) >> 8)
	packet[17] = byte(len(payload) & 0xFF)
	copy(packet[18:], payload)
	return packet
}

// Node is an Art-Net device that answered an ArtPoll.
type Node struct {
	Name string
	IP   net.IP
}

// Poll broadcasts an ArtPoll and collects ArtPollReply packets for the given
// duration.
func Poll(broadcast string, wait time.Duration) ([]Node, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: artnetPort})
	if err != nil {
		return nil, fmt.Errorf("artnet: listen: %w", err)
	}
	defer conn.Close()

	if raw, err := conn.SyscallConn(); err == nil {
		raw.Control(func(fd uintptr) {
			syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		})
	}

	pkt := make([]byte, 14)
	copy(pkt, artnetID)
	pkt[8], pkt[9] = byte(opPoll&0xFF), byte(opPoll>>8)
	pkt[10], pkt[11] = 0, protocolVersion
	pkt[12] = 0x06 // TalkToMe
	pkt[13] = 0x00 // priority

	ip := net.ParseIP(broadcast)
	if ip == nil {
		ip = net.IPv4bcast
	}
	if _, err := conn.WriteToUDP(pkt, &net.UDPAddr{IP: ip, Port: artnetPort}); err != nil {
		return nil, fmt.Errorf("artnet: poll: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(wait))
	var nodes []Node
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		if n < 44 || string(buf[:7]) != "Art-Net" {
			continue
		}
		if int(buf[8])|int(buf[9])<<8 != opPollReply {
			continue
		}
		name := buf[26:44]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		nodes = append(nodes, Node{Name: string(name), IP: addr.IP})
	}
	return nodes, nil
}

package osc

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"shroomlight/lib/bus"
)

// Server receives sensor OSC messages over UDP and publishes them as bus
// events. Known addresses are /audio/beat, /audio/level and /bio/<plant>;
// anything else is logged and dropped.
type Server struct {
	Port int

	bus  *bus.Bus
	conn *net.UDPConn
}

func NewServer(port int, b *bus.Bus) *Server {
	return &Server{Port: port, bus: b}
}

func (s *Server) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.Port})
	if err != nil {
		return fmt.Errorf("osc: listen :%d: %w", s.Port, err)
	}
	s.conn = conn
	log.Printf("osc: listening on :%d", s.Port)
	return nil
}

func (s *Server) Stop() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Run reads datagrams until the connection is closed or ctx is done.
func (s *Server) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	buf := make([]byte, 1500)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		addr, args, err := Parse(buf[:n])
		if err != nil {
			log.Printf("osc: %v", err)
			continue
		}
		s.handle(addr, args)
	}
}

func (s *Server) handle(addr string, args []any) {
	var ev bus.Event

	switch {
	case addr == "/audio/beat":
		intensity := 1.0
		if len(args) > 0 {
			if v, ok := Float(args[0]); ok {
				intensity = v
			}
		}
		ev = bus.AudioBeatEvent{Intensity: intensity}

	case addr == "/audio/level":
		var levels [4]float64
		for i := range levels {
			if i < len(args) {
				if v, ok := Float(args[i]); ok {
					levels[i] = v
				}
			}
		}
		ev = bus.AudioLevelEvent{
			Level: levels[0], Low: levels[1], Mid: levels[2], High: levels[3],
		}

	case addr == "/audio/bass", addr == "/audio/mid", addr == "/audio/high":
		// Redundant with /audio/level; accepted quietly so senders that
		// emit per-band addresses don't flood the log.
		return

	case strings.HasPrefix(addr, "/bio/"):
		plant := addr[strings.LastIndexByte(addr, '/')+1:]
		mushroom := bus.Broadcast
		if n, err := strconv.Atoi(strings.TrimPrefix(plant, "plant")); err == nil {
			mushroom = n - 1 // plant1 drives mushroom 0
		}
		resistance := 0.0
		if len(args) > 0 {
			if v, ok := Float(args[0]); ok {
				resistance = v
			}
		}
		ev = bus.BioEvent{Plant: plant, Resistance: resistance, Mushroom: mushroom}

	default:
		log.Printf("osc: %s %v", addr, args)
		return
	}

	if !s.bus.TryPublish(ev) {
		log.Printf("osc: bus full, dropped %s", ev.Type())
	}
}

package osc

import (
	"fmt"
	"net"
)

// Client sends OSC messages to a single UDP destination.
type Client struct {
	conn *net.UDPConn
}

func NewClient(host string, port int) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("osc: resolve %s:%d: %w", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("osc: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Send(addr string, args ...any) error {
	if _, err := c.conn.Write(Build(addr, args...)); err != nil {
		return fmt.Errorf("osc: send %s: %w", addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

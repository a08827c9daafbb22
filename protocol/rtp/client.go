/*
NAME
  client.go

DESCRIPTION
  client.go provides an RTP client that receives packets over UDP.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package rtp

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout is the read timeout used when none is given to NewClient.
const DefaultTimeout = 5 * time.Second

// Client describes an RTP client that can receive an RTP stream and implements
// io.Reader. Each Read returns one packet.
type Client struct {
	conn    *net.UDPConn
	timeout time.Duration
}

// NewClient returns a pointer to a new Client.
//
// addr is the address of form <ip>:<port> that we expect to receive
// RTP at. A Read waiting longer than timeout for a packet fails with a
// net.Error reporting a timeout. If timeout is zero DefaultTimeout is used.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Addr returns the local address the client receives at.
func (c *Client) Addr() net.Addr { return c.conn.LocalAddr() }

// Read implements io.Reader.
func (c *Client) Read(p []byte) (int, error) {
	err := c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	if err != nil {
		return 0, errors.Wrap(err, "could not set read deadline")
	}
	n, _, err := c.conn.ReadFrom(p)
	return n, err
}

// Close will close the RTP client's connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

/*
NAME
  client_test.go

DESCRIPTION
  client_test.go provides testing utilities to check RTP client
  functionality provided in client.go.

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
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
)

// TestReceive checks that a Depacketizer reading from a Client recovers the
// stream sent to it, and that the stream ends once the sender goes quiet.
func TestReceive(t *testing.T) {
	const packetsToSend = 20

	c, err := NewClient("127.0.0.1:0", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("could not create client: %v", err)
	}
	defer c.Close()

	conn, err := net.DialUDP("udp", nil, c.Addr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("could not dial udp: %v", err)
	}
	defer conn.Close()

	var want []byte
	for i := 0; i < packetsToSend; i++ {
		payload := []byte{byte(i), byte(i + 1)}
		want = append(want, payload...)
		p := (&Packet{
			Version:     rtpVer,
			PayloadType: PayloadTypeDynamic,
			Sequence:    uint16(i),
			SSRC:        1,
			Payload:     payload,
		}).Bytes(nil)
		_, err := conn.Write(p)
		if err != nil {
			t.Fatalf("could not write packet to conn: %v", err)
		}
	}

	d := NewDepacketizer(c, (*logging.TestLogger)(t))
	got, err := io.ReadAll(d)
	if err != nil {
		t.Fatalf("unexpected error from read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("did not get expected result.\nGot: %v\nWant: %v", got, want)
	}
}

// Package client implements the client-side half of the wire protocol: a
// TCP dial, the login handshake, and the symmetric reader/writer pair that
// drives an event channel for everything the server pushes afterward.
package client

import (
	"context"
	"fmt"
	"net"

	"github.com/blocklayer/voxelkeep/pkg/protocol"
	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

// eventQueueCapacity bounds how many server-pushed events can be buffered
// before the client itself starts dropping frames, mirroring the lossy
// character of chunk/position broadcasts on the server side.
const eventQueueCapacity = 256

// Client is a connected session with a world authority.
type Client struct {
	conn   net.Conn
	UID    uint64
	Events chan protocol.Message
	out    chan []byte
}

// Dial connects to addr, logs in as username, and returns a Client with
// its reader/writer loops already running. It returns an error (not a
// LoginFailed event) if the login is rejected.
func Dial(ctx context.Context, addr, username string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial: %w", err)
	}

	if _, err := conn.Write(protocol.Login{Name: username}.Encode()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: sending login: %w", err)
	}

	id, err := protocol.ReadID(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: reading login response: %w", err)
	}
	msg, err := protocol.Decode(protocol.ClientPerspective, id, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: decoding login response: %w", err)
	}

	switch m := msg.(type) {
	case protocol.LoginFailed:
		conn.Close()
		return nil, fmt.Errorf("client: login rejected")
	case protocol.LoginSuccess:
		c := &Client{
			conn:   conn,
			UID:    m.UID,
			Events: make(chan protocol.Message, eventQueueCapacity),
			out:    make(chan []byte, eventQueueCapacity),
		}
		go c.writerLoop()
		go c.readerLoop()
		return c, nil
	default:
		conn.Close()
		return nil, fmt.Errorf("client: unexpected message during login: %T", msg)
	}
}

func (c *Client) readerLoop() {
	defer close(c.Events)
	for {
		id, err := protocol.ReadID(c.conn)
		if err != nil {
			return
		}
		msg, err := protocol.Decode(protocol.ClientPerspective, id, c.conn)
		if err != nil {
			return
		}
		select {
		case c.Events <- msg:
		default: // drop if the consumer isn't keeping up
		}
	}
}

func (c *Client) writerLoop() {
	for frame := range c.out {
		if _, err := c.conn.Write(frame); err != nil {
			return
		}
	}
}

func (c *Client) send(frame []byte) {
	select {
	case c.out <- frame:
	default:
	}
}

// RequestChunk asks the server for the current contents of a chunk.
func (c *Client) RequestChunk(pos voxel.ChunkPos) {
	c.send(protocol.RequestChunk{Pos: pos}.Encode())
}

// SetBlock requests a block change; block id 0 destroys, nonzero places.
func (c *Client) SetBlock(pos voxel.BlockPos, block byte) {
	c.send(protocol.BlockUpdate{Pos: pos, Block: block}.Encode())
}

// SendPosition reports this client's own pose.
func (c *Client) SendPosition(pos [3]float64, pitch, yaw float32) {
	c.send(protocol.ClientPlayerPosition{Pos: pos, Pitch: pitch, Yaw: yaw}.Encode())
}

// Close ends the connection.
func (c *Client) Close() error { return c.conn.Close() }

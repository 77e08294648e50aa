// Package netio provides the bounded, single-consumer outbound frame queue
// that decouples the world authority from the speed of any one socket.
package netio

import "sync"

// DefaultQueueCapacity is the minimum outbound queue depth required so that
// a burst of chunk or position broadcasts doesn't immediately start
// dropping frames for a momentarily-busy client.
const DefaultQueueCapacity = 10000

// Outbound is a bounded queue of pre-encoded frames destined for one
// client's socket. Producers call Send for frames that must never be
// dropped (login, logout, block updates) and TrySend for frames that may be
// dropped under load (chunk data, position broadcasts). A single consumer
// drains it with Recv.
type Outbound struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

// NewOutbound creates a queue with the given capacity.
func NewOutbound(capacity int) *Outbound {
	return &Outbound{
		ch:     make(chan []byte, capacity),
		closed: make(chan struct{}),
	}
}

// Send enqueues frame, blocking until there is room or the queue is closed.
func (o *Outbound) Send(frame []byte) {
	select {
	case o.ch <- frame:
	case <-o.closed:
	}
}

// TrySend enqueues frame if there is room, reporting whether it was
// accepted. It never blocks.
func (o *Outbound) TrySend(frame []byte) bool {
	select {
	case o.ch <- frame:
		return true
	default:
		return false
	}
}

// Recv blocks for the next frame. It reports ok=false once the queue is
// closed and drained.
func (o *Outbound) Recv() ([]byte, bool) {
	select {
	case f := <-o.ch:
		return f, true
	case <-o.closed:
		select {
		case f := <-o.ch:
			return f, true
		default:
			return nil, false
		}
	}
}

// Close marks the queue closed. Safe to call more than once and
// concurrently with Send/TrySend/Recv.
func (o *Outbound) Close() {
	o.once.Do(func() { close(o.closed) })
}

//go:build linux || darwin

package iotask

import (
	"errors"
	"net/netip"

	"golang.org/x/sys/unix"
)

// Conn is an accepted connection, owned by a [Connector].
//
// Writes are queued, and flushed without blocking, by the connector's polls.
// It must only be used from the scheduler's goroutine.
type Conn struct {
	pending []byte
	peer    netip.AddrPort
	fd      int
	closing bool
}

// Peer returns the remote address.
func (c *Conn) Peer() netip.AddrPort {
	return c.peer
}

// Write queues p, to be written to the connection. It never blocks, and the
// bytes are copied. Writes after Close are discarded.
func (c *Conn) Write(p []byte) {
	if c.closing {
		return
	}
	c.pending = append(c.pending, p...)
}

// Buffered returns the number of queued bytes that have not yet been written.
func (c *Conn) Buffered() int {
	return len(c.pending)
}

// Close requests the connection be closed, once all queued bytes have been
// written. Nothing further will be read from it.
func (c *Conn) Close() {
	c.closing = true
}

// flush writes as much of the queue as the socket accepts.
func (c *Conn) flush() error {
	for len(c.pending) != 0 {
		n, err := unix.Write(c.fd, c.pending)
		if n > 0 {
			c.pending = c.pending[n:]
		}
		if err != nil {
			if isTransient(err) {
				return nil
			}
			return err
		}
		if n <= 0 {
			return nil
		}
	}
	c.pending = nil
	return nil
}

// isTransient reports whether err is a "not ready" condition, to be retried
// on a later poll.
func isTransient(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR)
}

// isPeerGone reports whether err indicates the remote end went away, which
// only affects the one connection.
func isPeerGone(err error) bool {
	return errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE)
}

func addrPortFromSockaddr(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr).Unmap(), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}

func sockaddrFromAddrPort(ap netip.AddrPort) (domain int, sa unix.Sockaddr, ok bool) {
	addr := ap.Addr()
	if !addr.IsValid() || addr.Zone() != "" {
		return 0, nil, false
	}
	if addr.Is4() || addr.Is4In6() {
		return unix.AF_INET, &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.Unmap().As4()}, true
	}
	return unix.AF_INET6, &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}, true
}

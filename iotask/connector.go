//go:build linux || darwin

package iotask

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/joeycumines/go-poller"
	"golang.org/x/sys/unix"
)

// Connector is a [poller.Task] owning a non-blocking listening socket, and
// the ordered set of connections accepted from it.
//
// See the package documentation for the per-poll behavior. A Connector must
// only be used from the scheduler's goroutine, use [WithSignal] to cancel it
// from elsewhere.
type Connector struct {
	poller.Base
	cfg   *connectorOptions
	conns []*Conn
	buf   []byte
	addr  netip.AddrPort
	fd    int
	// closed is set once every socket has been released
	closed bool
}

var _ poller.Task = (*Connector)(nil)

// Listen creates a Connector, bound and listening on addr, which must be a
// literal ip:port, e.g. "127.0.0.1:8080". Port 0 selects an ephemeral port,
// see [Connector.Addr].
func Listen(addr string, opts ...Option) (*Connector, error) {
	cfg, err := resolveConnectorOptions(opts)
	if err != nil {
		return nil, err
	}

	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, addr, err)
	}
	domain, sa, ok := sockaddrFromAddrPort(ap)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidAddress, addr)
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &OpError{Op: "socket", Err: err}
	}
	unix.CloseOnExec(fd)

	bound, err := listen(fd, sa, cfg.backlog)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	x := &Connector{
		cfg:  cfg,
		buf:  make([]byte, cfg.readBufferSize),
		addr: bound,
		fd:   fd,
	}
	x.logListening()
	return x, nil
}

func listen(fd int, sa unix.Sockaddr, backlog int) (netip.AddrPort, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return netip.AddrPort{}, &OpError{Op: "setnonblock", Err: err}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return netip.AddrPort{}, &OpError{Op: "setsockopt", Err: err}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return netip.AddrPort{}, &OpError{Op: "bind", Err: err}
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return netip.AddrPort{}, &OpError{Op: "listen", Err: err}
	}
	local, err := unix.Getsockname(fd)
	if err != nil {
		return netip.AddrPort{}, &OpError{Op: "getsockname", Err: err}
	}
	return addrPortFromSockaddr(local), nil
}

// Addr returns the bound local address.
func (x *Connector) Addr() netip.AddrPort {
	return x.addr
}

// Len returns the number of open connections.
func (x *Connector) Len() int {
	return len(x.conns)
}

// Conns returns the open connections, in accept order.
func (x *Connector) Conns() []*Conn {
	return slices.Clone(x.conns)
}

// String implements [fmt.Stringer], naming the task for logs.
func (x *Connector) String() string {
	return "iotask.Connector(" + x.addr.String() + ")"
}

// EnableBlocking is a no-op, as a Connector never resolves.
func (x *Connector) EnableBlocking() {}

// ShouldBlock always returns false.
func (x *Connector) ShouldBlock() bool { return false }

// Poll implements [poller.Task].
func (x *Connector) Poll() poller.Outcome[any] {
	if x.closed {
		return poller.Rejected[any](&poller.AbortError{Reason: ErrClosed})
	}

	if err := x.cfg.signal.Err(); err != nil {
		_ = x.Close()
		return poller.Rejected[any](err)
	}

	if err := x.accept(); err != nil {
		return x.fail(err)
	}

	for i := 0; i < len(x.conns); {
		conn := x.conns[i]
		evict, err := x.service(conn)
		if err != nil {
			return x.fail(err)
		}
		if evict {
			x.evict(i)
			continue
		}
		i++
	}

	return poller.Pending[any]()
}

// Close releases the listening socket and every connection. It is
// idempotent. Any subsequent poll rejects with an [*poller.AbortError]
// wrapping [ErrClosed].
func (x *Connector) Close() error {
	if x.closed {
		return nil
	}
	x.closed = true
	var errs []error
	for _, conn := range x.conns {
		if err := unix.Close(conn.fd); err != nil {
			errs = append(errs, &OpError{Op: "close", Peer: conn.peer.String(), Err: err})
		}
	}
	x.conns = nil
	if err := unix.Close(x.fd); err != nil {
		errs = append(errs, &OpError{Op: "close", Err: err})
	}
	x.logClosed()
	return errors.Join(errs...)
}

// accept attempts exactly one accept, returning only fatal errors.
func (x *Connector) accept() error {
	fd, sa, err := unix.Accept(x.fd)
	if err != nil {
		if isTransient(err) || errors.Is(err, unix.ECONNABORTED) {
			return nil
		}
		return &OpError{Op: "accept", Err: err}
	}
	unix.CloseOnExec(fd)

	peer := addrPortFromSockaddr(sa)

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return &OpError{Op: "setnonblock", Peer: peer.String(), Err: err}
	}

	if x.cfg.peerLimiter != nil {
		if next, ok := x.cfg.peerLimiter.Allow(peer.Addr()); !ok {
			_ = unix.Close(fd)
			x.logRateLimited(peer, next)
			return nil
		}
	}

	conn := &Conn{fd: fd, peer: peer}
	x.conns = append(x.conns, conn)
	x.logAccepted(peer)

	if x.cfg.onAcquire != nil {
		x.cfg.onAcquire(conn, peer)
	}

	return nil
}

// service performs one round of I/O for conn, reporting whether it should be
// evicted, or a fatal error.
func (x *Connector) service(conn *Conn) (evict bool, err error) {
	if evict, err := x.flush(conn); evict || err != nil {
		return evict, err
	}

	if conn.closing {
		return len(conn.pending) == 0, nil
	}

	n, err := unix.Read(conn.fd, x.buf)
	switch {
	case err == nil && n == 0:
		x.logEvicted(conn.peer, "peer closed")
		return true, nil
	case err == nil:
	case isTransient(err):
		return false, nil
	case isPeerGone(err):
		x.logEvicted(conn.peer, err.Error())
		return true, nil
	default:
		return false, &OpError{Op: "read", Peer: conn.peer.String(), Err: err}
	}

	x.logReceived(conn.peer, n)

	resp, err := x.cfg.onReceive(x.buf[:n], conn.peer)
	if err != nil {
		x.logReceiveFailed(conn.peer, err)
		conn.Write(x.cfg.failureResponse)
		conn.Close()
	} else {
		conn.Write(resp)
	}

	if evict, err := x.flush(conn); evict || err != nil {
		return evict, err
	}
	return conn.closing && len(conn.pending) == 0, nil
}

func (x *Connector) flush(conn *Conn) (evict bool, err error) {
	if err := conn.flush(); err != nil {
		if isPeerGone(err) {
			x.logEvicted(conn.peer, err.Error())
			return true, nil
		}
		return false, &OpError{Op: "write", Peer: conn.peer.String(), Err: err}
	}
	return false, nil
}

// evict closes and removes the connection at index i, preserving order.
func (x *Connector) evict(i int) {
	conn := x.conns[i]
	x.conns = slices.Delete(x.conns, i, i+1)
	if err := unix.Close(conn.fd); err != nil {
		x.logCloseFailed(conn.peer, err)
	}
}

// fail releases all sockets, and rejects with err.
func (x *Connector) fail(err error) poller.Outcome[any] {
	x.logFatal(err)
	_ = x.Close()
	return poller.Rejected[any](err)
}

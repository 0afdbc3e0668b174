//go:build linux || darwin

package iotask

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSockaddrRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		in     string
		domain int
		out    string
	}{
		{"127.0.0.1:8080", unix.AF_INET, "127.0.0.1:8080"},
		{"[::ffff:10.0.0.1]:1", unix.AF_INET, "10.0.0.1:1"},
		{"[::1]:443", unix.AF_INET6, "[::1]:443"},
	} {
		domain, sa, ok := sockaddrFromAddrPort(netip.MustParseAddrPort(tc.in))
		require.True(t, ok, tc.in)
		assert.Equal(t, tc.domain, domain, tc.in)
		assert.Equal(t, tc.out, addrPortFromSockaddr(sa).String(), tc.in)
	}

	_, _, ok := sockaddrFromAddrPort(netip.AddrPort{})
	assert.False(t, ok)
	assert.False(t, addrPortFromSockaddr(&unix.SockaddrUnix{Name: "x"}).IsValid())
}

func TestConn_queue(t *testing.T) {
	c := &Conn{fd: -1}
	c.Write([]byte("ab"))
	c.Write([]byte("c"))
	assert.Equal(t, 3, c.Buffered())

	c.Close()
	c.Write([]byte("ignored"))
	assert.Equal(t, 3, c.Buffered())
	assert.True(t, c.closing)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isTransient(unix.EAGAIN))
	assert.True(t, isTransient(unix.EINTR))
	assert.False(t, isTransient(unix.ECONNRESET))
	assert.True(t, isPeerGone(unix.ECONNRESET))
	assert.True(t, isPeerGone(&OpError{Op: "write", Err: unix.EPIPE}))
	assert.False(t, isPeerGone(unix.EBADF))
}

func TestOpError(t *testing.T) {
	err := &OpError{Op: "read", Peer: "1.2.3.4:5", Err: unix.EBADF}
	assert.Equal(t, "iotask: read 1.2.3.4:5: "+unix.EBADF.Error(), err.Error())
	assert.ErrorIs(t, err, unix.EBADF)
	assert.Equal(t, "iotask: accept: "+unix.EMFILE.Error(), (&OpError{Op: "accept", Err: unix.EMFILE}).Error())
}

//go:build linux || darwin

package iotask

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/joeycumines/go-poller"
	"github.com/joeycumines/go-poller/httpecho"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func listenLoopback(t *testing.T, opts ...Option) *Connector {
	t.Helper()
	c, err := Listen("127.0.0.1:0", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.True(t, c.Addr().Addr().IsLoopback())
	require.NotZero(t, c.Addr().Port())
	return c
}

func dial(t *testing.T, c *Connector) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", c.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// pollUntil polls c until cond holds, failing if c leaves the Pending state.
func pollUntil(t *testing.T, c *Connector, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "timed out polling connector")
		outcome := c.Poll()
		require.True(t, outcome.IsPending(), "unexpected outcome: %v", outcome)
	}
}

// reader accumulates bytes from conn, without blocking for long, so reads
// may be interleaved with polls.
type reader struct {
	conn net.Conn
	buf  bytes.Buffer
	eof  bool
}

func (r *reader) read(t *testing.T) {
	t.Helper()
	require.NoError(t, r.conn.SetReadDeadline(time.Now().Add(time.Millisecond)))
	b := make([]byte, 1024)
	n, err := r.conn.Read(b)
	r.buf.Write(b[:n])
	switch {
	case err == nil:
	case errors.Is(err, os.ErrDeadlineExceeded):
	case errors.Is(err, io.EOF), isPeerGone(err):
		r.eof = true
	default:
		require.NoError(t, err)
	}
}

func (r *reader) until(t *testing.T, c *Connector, cond func() bool) {
	t.Helper()
	pollUntil(t, c, func() bool {
		r.read(t)
		return cond()
	})
}

func TestListen_invalidAddress(t *testing.T) {
	for _, addr := range []string{"", "localhost:80", "127.0.0.1", "[fe80::1%lo]:80"} {
		_, err := Listen(addr)
		assert.ErrorIs(t, err, ErrInvalidAddress, addr)
	}
}

func TestListen_invalidOptions(t *testing.T) {
	for _, opt := range []Option{
		WithOnReceive(nil),
		WithReadBufferSize(0),
		WithBacklog(-1),
		WithPeerRateLimit(nil),
		WithPeerRateLimit(map[time.Duration]int{time.Second: 10, time.Minute: 5}),
	} {
		_, err := Listen("127.0.0.1:0", opt)
		assert.Error(t, err)
	}
}

func TestListen_addressInUse(t *testing.T) {
	c := listenLoopback(t)
	_, err := Listen(c.Addr().String())
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "bind", opErr.Op)
}

func TestConnector_echoByDefault(t *testing.T) {
	c := listenLoopback(t)
	client := dial(t, c)

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)

	r := &reader{conn: client}
	r.until(t, c, func() bool { return r.buf.String() == "hello" })
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.ShouldBlock())
}

func TestConnector_onAcquire(t *testing.T) {
	var peers []netip.AddrPort
	c := listenLoopback(t, WithOnAcquire(func(conn *Conn, peer netip.AddrPort) {
		peers = append(peers, peer)
		assert.Equal(t, peer, conn.Peer())
		conn.Write([]byte("welcome\n"))
	}))
	client := dial(t, c)

	r := &reader{conn: client}
	r.until(t, c, func() bool { return r.buf.String() == "welcome\n" })

	require.Len(t, peers, 1)
	local := client.LocalAddr().(*net.TCPAddr).AddrPort()
	assert.Equal(t, netip.AddrPortFrom(local.Addr().Unmap(), local.Port()), peers[0])
	require.Len(t, c.Conns(), 1)
	assert.Zero(t, c.Conns()[0].Buffered())
}

func TestConnector_evictsClosedPeer(t *testing.T) {
	c := listenLoopback(t)
	first := dial(t, c)
	second := dial(t, c)

	pollUntil(t, c, func() bool { return c.Len() == 2 })
	require.NoError(t, first.Close())
	pollUntil(t, c, func() bool { return c.Len() == 1 })

	// the survivor still works
	_, err := second.Write([]byte("still here"))
	require.NoError(t, err)
	r := &reader{conn: second}
	r.until(t, c, func() bool { return r.buf.String() == "still here" })
}

func TestConnector_evictsResetPeer(t *testing.T) {
	c := listenLoopback(t)
	first := dial(t, c)
	second := dial(t, c)
	pollUntil(t, c, func() bool { return c.Len() == 2 })

	// an abortive close sends RST, so the next read fails with ECONNRESET
	require.NoError(t, first.(*net.TCPConn).SetLinger(0))
	require.NoError(t, first.Close())
	pollUntil(t, c, func() bool { return c.Len() == 1 })

	_, err := second.Write([]byte("survivor"))
	require.NoError(t, err)
	r := &reader{conn: second}
	r.until(t, c, func() bool { return r.buf.String() == "survivor" })
	assert.Equal(t, 1, c.Len())
}

func TestConnector_fatalAcceptError(t *testing.T) {
	var logs bytes.Buffer
	c := listenLoopback(t, WithLogger(stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&logs), stumpy.WithTimeField(``)),
	).Logger()))
	client := dial(t, c)
	pollUntil(t, c, func() bool { return c.Len() == 1 })

	// release the listening socket underneath the connector, so that the
	// next accept fails with EBADF
	require.NoError(t, unix.Close(c.fd))
	c.fd = -1

	var faults []error
	s, err := poller.New(poller.WithFaultReporter(func(err error) { faults = append(faults, err) }))
	require.NoError(t, err)
	s.Schedule(c)

	err = s.Run(context.Background())
	var unhandled *poller.UnhandledRejectionError
	require.ErrorAs(t, err, &unhandled)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "accept", opErr.Op)
	assert.ErrorIs(t, err, unix.EBADF)
	assert.False(t, errors.Is(err, &poller.AbortError{}))
	assert.Len(t, faults, 1)
	assert.Zero(t, c.Len())
	assert.Contains(t, logs.String(), `"msg":"iotask: fatal socket error"`)

	// every accepted connection was closed
	r := &reader{conn: client}
	deadline := time.Now().Add(5 * time.Second)
	for !r.eof && time.Now().Before(deadline) {
		r.read(t)
	}
	assert.True(t, r.eof)
}

func TestConnector_failureResponse(t *testing.T) {
	failure := []byte("FAILED\n")
	c := listenLoopback(t,
		WithFailureResponse(failure),
		WithOnReceive(func(data []byte, _ netip.AddrPort) ([]byte, error) {
			if string(data) == "bad" {
				return nil, errors.New("unparseable")
			}
			return []byte("ok"), nil
		}),
	)
	good, bad := dial(t, c), dial(t, c)

	_, err := bad.Write([]byte("bad"))
	require.NoError(t, err)
	r := &reader{conn: bad}
	r.until(t, c, func() bool { return r.eof })
	assert.Equal(t, "FAILED\n", r.buf.String())

	// the connector keeps running, and other connections are unaffected
	_, err = good.Write([]byte("good"))
	require.NoError(t, err)
	r = &reader{conn: good}
	r.until(t, c, func() bool { return r.buf.String() == "ok" })
	assert.Equal(t, 1, c.Len())
}

func TestConnector_readBufferSize(t *testing.T) {
	var chunks []int
	c := listenLoopback(t,
		WithReadBufferSize(4),
		WithOnReceive(func(data []byte, _ netip.AddrPort) ([]byte, error) {
			chunks = append(chunks, len(data))
			return data, nil
		}),
	)
	client := dial(t, c)

	_, err := client.Write([]byte("0123456789"))
	require.NoError(t, err)
	r := &reader{conn: client}
	r.until(t, c, func() bool { return r.buf.String() == "0123456789" })
	for _, n := range chunks {
		assert.LessOrEqual(t, n, 4)
	}
}

func TestConnector_peerRateLimit(t *testing.T) {
	var acquired int
	c := listenLoopback(t,
		WithPeerRateLimit(map[time.Duration]int{time.Minute: 1}),
		WithOnAcquire(func(*Conn, netip.AddrPort) { acquired++ }),
	)
	allowed := dial(t, c)
	pollUntil(t, c, func() bool { return acquired == 1 })

	limited := dial(t, c)
	r := &reader{conn: limited}
	r.until(t, c, func() bool { return r.eof })
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, c.Len())

	_, err := allowed.Write([]byte("x"))
	require.NoError(t, err)
	r = &reader{conn: allowed}
	r.until(t, c, func() bool { return r.buf.String() == "x" })
}

func TestConnector_signal(t *testing.T) {
	controller := poller.NewAbortController()
	c := listenLoopback(t, WithSignal(controller.Signal()))
	client := dial(t, c)
	pollUntil(t, c, func() bool { return c.Len() == 1 })

	controller.Abort("shutdown")
	outcome := c.Poll()
	require.Equal(t, poller.StateRejected, outcome.State())
	var abortErr *poller.AbortError
	require.ErrorAs(t, outcome.Err(), &abortErr)
	assert.Equal(t, "shutdown", abortErr.Reason)
	assert.Zero(t, c.Len())

	// every socket was released
	r := &reader{conn: client}
	deadline := time.Now().Add(5 * time.Second)
	for !r.eof && time.Now().Before(deadline) {
		r.read(t)
	}
	assert.True(t, r.eof)
	_, err := net.Dial("tcp", c.Addr().String())
	assert.Error(t, err)
}

func TestConnector_Close(t *testing.T) {
	c := listenLoopback(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	outcome := c.Poll()
	require.Equal(t, poller.StateRejected, outcome.State())
	assert.ErrorIs(t, outcome.Err(), ErrClosed)
	assert.ErrorIs(t, outcome.Err(), &poller.AbortError{})
}

func TestConnector_scheduledHTTPEcho(t *testing.T) {
	s, err := poller.New()
	require.NoError(t, err)

	controller := poller.NewAbortController()
	c := listenLoopback(t,
		WithSignal(controller.Signal()),
		WithOnReceive(httpecho.Handle),
	)
	s.Schedule(c)

	type result struct {
		body string
		err  error
	}
	results := make(chan result, 1)
	go func() {
		defer controller.Abort(nil)
		conn, err := net.Dial("tcp", c.Addr().String())
		if err != nil {
			results <- result{err: err}
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Write([]byte("POST / HTTP/1.1\r\nHost: test\r\nContent-Length: 4\r\n\r\nping")); err != nil {
			results <- result{err: err}
			return
		}
		resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
		if err != nil {
			results <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		results <- result{body: string(body), err: err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, "ping", res.body)
	assert.True(t, s.IsIdle())
	assert.Equal(t, uint64(1), s.Stats().Cancelled)
}

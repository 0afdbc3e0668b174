//go:build linux || darwin

package iotask

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-poller"
	"github.com/joeycumines/logiface"
)

const (
	// DefaultReadBufferSize bounds the bytes read per connection, per poll.
	DefaultReadBufferSize = 4096

	// DefaultBacklog is the listen(2) backlog.
	DefaultBacklog = 128
)

// DefaultFailureResponse is written in place of a response, when the
// receive hook returns an error.
var DefaultFailureResponse = []byte("HTTP/1.1 400 Bad Request\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")

type (
	// AcquireFunc is invoked for each accepted connection, before it is
	// first read. It may queue an initial write via [Conn.Write].
	AcquireFunc func(conn *Conn, peer netip.AddrPort)

	// ReceiveFunc is invoked with the bytes read from a connection, which are
	// only valid for the duration of the call. It returns the bytes to write
	// back (possibly none), or an error, to write the failure response.
	ReceiveFunc func(data []byte, peer netip.AddrPort) ([]byte, error)

	// Option configures a Connector.
	Option interface {
		applyConnector(*connectorOptions) error
	}

	connectorOptionImpl struct {
		applyConnectorFunc func(*connectorOptions) error
	}

	connectorOptions struct {
		logger          *logiface.Logger[logiface.Event]
		signal          *poller.AbortSignal
		onAcquire       AcquireFunc
		onReceive       ReceiveFunc
		peerLimiter     *catrate.Limiter
		failureResponse []byte
		readBufferSize  int
		backlog         int
	}
)

func (x *connectorOptionImpl) applyConnector(opts *connectorOptions) error {
	return x.applyConnectorFunc(opts)
}

// WithLogger configures structured logging. Nil (the default) disables it.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithSignal configures the Connector to observe an AbortSignal, checked at
// the top of each poll. Once aborted, all sockets are closed, and the task is
// rejected with an [*poller.AbortError].
func WithSignal(signal *poller.AbortSignal) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		opts.signal = signal
		return nil
	}}
}

// WithOnAcquire configures the hook invoked for each accepted connection.
func WithOnAcquire(fn AcquireFunc) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		opts.onAcquire = fn
		return nil
	}}
}

// WithOnReceive configures the hook invoked with received data. The default
// echoes the data back, unchanged.
func WithOnReceive(fn ReceiveFunc) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		if fn == nil {
			return errors.New("iotask: nil receive hook")
		}
		opts.onReceive = fn
		return nil
	}}
}

// WithFailureResponse configures the bytes written when the receive hook
// returns an error. Defaults to [DefaultFailureResponse].
func WithFailureResponse(b []byte) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		opts.failureResponse = b
		return nil
	}}
}

// WithReadBufferSize configures the maximum bytes read from a connection per
// poll. Defaults to [DefaultReadBufferSize].
func WithReadBufferSize(size int) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		if size <= 0 {
			return errors.New("iotask: read buffer size must be positive")
		}
		opts.readBufferSize = size
		return nil
	}}
}

// WithBacklog configures the listen(2) backlog. Defaults to [DefaultBacklog].
func WithBacklog(backlog int) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		if backlog <= 0 {
			return errors.New("iotask: backlog must be positive")
		}
		opts.backlog = backlog
		return nil
	}}
}

// WithPeerRateLimit limits accepted connections per remote IP, using the
// given multi-window rates (see [catrate.NewLimiter]). Connections over the
// limit are closed immediately after accept, without invoking any hook.
func WithPeerRateLimit(rates map[time.Duration]int) Option {
	return &connectorOptionImpl{func(opts *connectorOptions) error {
		if len(rates) == 0 {
			return errors.New("iotask: empty peer rate limit")
		}
		limiter, err := newPeerLimiter(rates)
		if err != nil {
			return err
		}
		opts.peerLimiter = limiter
		return nil
	}}
}

func resolveConnectorOptions(opts []Option) (*connectorOptions, error) {
	cfg := &connectorOptions{
		failureResponse: DefaultFailureResponse,
		readBufferSize:  DefaultReadBufferSize,
		backlog:         DefaultBacklog,
		onReceive:       echo,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyConnector(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newPeerLimiter converts the panic catrate uses to report invalid rates.
func newPeerLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iotask: invalid peer rate limit: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

func echo(data []byte, _ netip.AddrPort) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

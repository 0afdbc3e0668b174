package iotask

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is the abort reason of a Connector that was closed by
	// [Connector.Close].
	ErrClosed = errors.New("iotask: connector closed")

	// ErrInvalidAddress is returned by Listen if the address is not a
	// literal ip:port.
	ErrInvalidAddress = errors.New("iotask: invalid listen address")
)

// OpError is the rejection reason of a Connector that encountered a fatal
// socket error.
type OpError struct {
	// Err is the underlying error, typically a [syscall.Errno].
	Err error
	// Op is the failed operation, e.g. "accept" or "read".
	Op string
	// Peer is the remote address, if the operation was on a connection.
	Peer string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("iotask: %s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("iotask: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *OpError) Unwrap() error {
	return e.Err
}

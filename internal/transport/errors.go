package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is returned by every Peer method after Stop.
	ErrStopped = errors.New("use of stopped peer")

	// ErrNoConnection is returned when sending to an address that has no
	// Connected connection. Sends never create connections.
	ErrNoConnection = errors.New("no connection to remote")

	// ErrPayloadTooBig is returned when a payload does not fit one datagram.
	ErrPayloadTooBig = errors.New("can't send payload: too big")

	// ErrRetryBufferFull is returned when a reliable send finds the retry
	// buffer at its limit. The connection is timed out on the next Poll.
	ErrRetryBufferFull = errors.New("reliable retry buffer full")
)

// A FatalError is a socket-level failure. The Peer is unusable afterwards
// and should be stopped.
type FatalError struct {
	Op  string // "bind", "read" or "write"
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err is, or wraps, a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

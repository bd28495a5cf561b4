package ethercat

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the PDU interface, socket set and task layer.
// Task-specific failures are returned as the richer error types below or as
// values of the per-task error types declared alongside each task.
var (
	ErrIllegalArgument   = errors.New("error in function arguments")
	ErrBusy              = errors.New("raw ethernet device not ready, retry")
	ErrTimeout           = errors.New("task exceeded its iteration budget")
	ErrUnexpectedCommand = errors.New("reply command or address does not match the outstanding request")
	ErrTooManySlaves     = errors.New("slave count exceeds the static network table capacity")
	ErrFrameCapacity     = errors.New("datagram would exceed frame or interface capacity")
	ErrSocketNotFound    = errors.New("no live socket for this handle")
	ErrNoReply           = errors.New("socket has no received pdu available")
)

// UnexpectedWkcError reports a working counter that did not match the
// pre-computed expectation for the command that was sent (1 for singletons,
// slave count for broadcasts, DC-slave count for DC drift datagrams).
type UnexpectedWkcError struct {
	Expected uint16
	Observed uint16
}

func (e *UnexpectedWkcError) Error() string {
	return fmt.Sprintf("unexpected working counter: expected %d, got %d", e.Expected, e.Observed)
}

func NewUnexpectedWkcError(expected, observed uint16) error {
	return &UnexpectedWkcError{Expected: expected, Observed: observed}
}

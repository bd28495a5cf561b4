// Package task implements the cyclic task state machines that bring slaves
// up and exchange process data and mailbox services with them, all driven
// cooperatively through NextPDU/OnReply/IsFinished rather than blocking.
package task

import (
	"github.com/samsamfire/goethercat/socket"

	ethercat "github.com/samsamfire/goethercat"
)

// Task is the uniform interface every cyclic and setup task implements.
type Task interface {
	// NextPDU fills buf with the next outstanding request, if any, and
	// returns the command to send and the length used. ok is false when
	// the task is idle (waiting for a reply already in flight) or
	// finished.
	NextPDU(buf []byte) (cmd ethercat.Command, size int, ok bool)

	// OnReply consumes the most recent reply's payload and working
	// counter.
	OnReply(payload []byte, wkc uint16, now ethercat.SystemTime)

	IsFinished() bool
}

// Clock supplies the current time to the task driver loop. The engine never
// reads a global clock itself; callers wire in a real or simulated source.
type Clock interface {
	Now() ethercat.SystemTime
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() ethercat.SystemTime

func (f ClockFunc) Now() ethercat.SystemTime { return f() }

// ProcessOneStep delivers any received reply to task, then arms sock with
// task's next request, if it has one.
func ProcessOneStep(sock *socket.Socket, task Task, now ethercat.SystemTime) {
	if payload, wkc, ok := sock.GetReceivedPDU(); ok {
		task.OnReply(payload, wkc, now)
	}
	sock.SetPDUOptional(func(buf []byte) (ethercat.Command, int, bool) {
		return task.NextPDU(buf)
	})
}

// DefaultBlockIterations is the iteration budget block() enforces absent an
// explicit override, matching the suggested setup-time timeout.
const DefaultBlockIterations = 10000

// Block drives task to completion against sock by repeatedly polling ss and
// stepping task, returning ethercat.ErrTimeout if task has not finished
// within maxIterations (DefaultBlockIterations if zero) rounds.
func Block(ss *socket.SocketSet, sock *socket.Socket, clock Clock, t Task, maxIterations int) error {
	if maxIterations <= 0 {
		maxIterations = DefaultBlockIterations
	}
	for i := 0; i < maxIterations; i++ {
		if _, err := ss.PollTxRx(); err != nil {
			return err
		}
		ProcessOneStep(sock, t, clock.Now())
		if t.IsFinished() {
			return nil
		}
	}
	return ethercat.ErrTimeout
}

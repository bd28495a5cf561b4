package task

import (
	"github.com/samsamfire/goethercat/socket"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/slave"
)

// NetworkInitError reports a failure during bring-up: either the static
// network table was too small, or a slave's bring-up script failed after
// the one-lost-reply tolerance was exhausted.
type NetworkInitError struct {
	Position uint16
	Err      error
}

func (e *NetworkInitError) Error() string { return "network init: " + e.Err.Error() }
func (e *NetworkInitError) Unwrap() error  { return e.Err }

const maxNetworkSlaves = 256

// networkInitLostBudget is the whole-bring-up retry tolerance: one failed
// slave-init script anywhere in the entire sequence gets retried once: a
// second failure anywhere, on any slave, gives up immediately. It is a
// single counter spanning all of RunNetworkInit, not a per-slave allowance
// renewed after every success.
const networkInitLostBudget = 1

// RunNetworkInit broadcasts a data-link-control write to discover the slave
// count via working counter, then runs the slave initializer for
// every position in order. A lost reply on the very first broadcast is a
// hard error; thereafter the whole bring-up gets networkInitLostBudget
// retries total across every slave, not one retry per slave.
func RunNetworkInit(ss *socket.SocketSet, sock *socket.Socket, clock Clock) ([]*slave.SlaveInfo, error) {
	dlControl := make([]byte, 2)
	write := NewRegWrite(ethercat.All(0), ethercat.RegDLControl, dlControl)
	if err := Block(ss, sock, clock, write, RegisterOpIterations); err != nil {
		return nil, &NetworkInitError{Err: err}
	}
	slaveCount := write.Wkc()
	if int(slaveCount) > maxNetworkSlaves {
		return nil, &NetworkInitError{Err: ethercat.ErrTooManySlaves}
	}

	slaves := make([]*slave.SlaveInfo, 0, slaveCount)
	lostBudget := networkInitLostBudget
	for pos := uint16(0); pos < slaveCount; pos++ {
		info, err := RunSlaveInit(ss, sock, clock, pos)
		if err != nil {
			if lostBudget == 0 {
				return nil, &NetworkInitError{Position: pos, Err: err}
			}
			lostBudget--
			info, err = RunSlaveInit(ss, sock, clock, pos)
			if err != nil {
				return nil, &NetworkInitError{Position: pos, Err: err}
			}
		}
		slaves = append(slaves, info)
	}
	return slaves, nil
}

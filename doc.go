// Package ethercat is a master-side implementation of an EtherCAT-class
// fieldbus protocol engine: frame codec, PDU interface, socket multiplexer,
// and the cyclic task state machines that bring slaves up and exchange
// process data and mailbox services with them.
//
// The engine is non-blocking throughout. Every long-running operation is
// modeled as a task exposing NextPDU/OnReply/IsFinished and is driven to
// completion by repeated calls from a caller-owned loop; there are no
// goroutines, timers, or heap allocations on the hot path. Raw Ethernet I/O
// and a monotonic clock are supplied by the caller through the
// rawsock.Device and SystemTime types.
package ethercat

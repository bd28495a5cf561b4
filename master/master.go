// Package master implements the façade a caller drives once per control
// cycle: it owns the PDU interface, the socket multiplexer, and the bound
// steady-state tasks (process-data exchange, DC drift compensation,
// RX-error polling, AL-state monitoring), wiring them together once per
// cycle.
package master

import (
	"github.com/samsamfire/goethercat/iface"
	"github.com/samsamfire/goethercat/rawsock"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/slave"

	log "github.com/sirupsen/logrus"
)

// socketSlotCount reserves four fixed slots (AL-state, RX-error, DC drift,
// general-purpose setup) plus one for the process-data socket added once
// the PDO image is configured.
const socketSlotCount = 5

const (
	slotAlState = iota
	slotRxError
	slotDcDrift
	slotGeneral
	slotPdata
)

// defaultRegisterBufferSize covers the largest single register op the
// setup tasks perform (SM/FMMU block clears), generously rounded up.
const defaultRegisterBufferSize = 64

// Master owns one raw-Ethernet interface, its socket multiplexer, and the
// steady-state tasks bound to four of its five socket slots.
type Master struct {
	ifc     *iface.Interface
	sockets *socket.SocketSet
	clock   task.Clock

	alStateSocket *socket.Socket
	rxErrorSocket *socket.Socket
	dcDriftSocket *socket.Socket
	generalSocket *socket.Socket
	pdataSocket   *socket.Socket

	alStateTask task.Task
	rxErrorTask *task.RxErrorReader
	dcDriftTask *task.DcDriftCompensator
	pdataTask   *task.LogicalProcessData

	slaves []*slave.Slave

	cycleCount uint64
	metrics    *Metrics
}

// New builds a Master over device, with srcMAC as the frame's source
// address and mtu bounding every frame it builds.
func New(device rawsock.Device, srcMAC [6]byte, mtu int, clock task.Clock) *Master {
	ifc := iface.New(device, srcMAC, mtu)
	ss := socket.NewSocketSet(ifc, socketSlotCount)

	m := &Master{
		ifc:           ifc,
		sockets:       ss,
		clock:         clock,
		alStateSocket: socket.NewSocket(defaultRegisterBufferSize),
		rxErrorSocket: socket.NewSocket(defaultRegisterBufferSize),
		dcDriftSocket: socket.NewSocket(defaultRegisterBufferSize),
		generalSocket: socket.NewSocket(defaultRegisterBufferSize),
		metrics:       newMetrics(),
	}
	ss.Insert(m.alStateSocket)
	ss.Insert(m.rxErrorSocket)
	ss.Insert(m.dcDriftSocket)
	ss.Insert(m.generalSocket)
	return m
}

// Bringup runs the network initializer, the PDO/sync configuration, the
// DC initializer, and per-slave sync-mode configuration in sequence,
// leaving the master ready for cyclic operation. It is the only blocking
// entry point; process-data exchange starts only after it returns.
// cycleTimeNs is the requested process-data cycle period, applied to every
// CoE-capable slave's sync-manager parameters (DC-synchronized slaves get
// Sync0/Sync1 register programming on top).
func (m *Master) Bringup(logicalBase uint32, cycleTimeNs uint32) error {
	slaves, err := task.RunNetworkInit(m.sockets, m.generalSocket, m.clock)
	if err != nil {
		return err
	}
	m.slaves = make([]*slave.Slave, len(slaves))
	for i, info := range slaves {
		m.slaves[i] = &slave.Slave{Info: *info}
		log.WithField("position", info.Position).Debug("[MASTER] slave initialized")
	}

	imageSize, expectedWkc, err := ConfigurePdoImage(m.sockets, m.generalSocket, m.clock, m.slaves, logicalBase)
	if err != nil {
		return err
	}

	compensator, err := task.RunDcInit(m.sockets, m.generalSocket, m.clock, m.slaves)
	if err != nil {
		return err
	}
	m.dcDriftTask = compensator

	for _, s := range m.slaves {
		mode := SyncManagerEvent
		if s.Info.SupportsDC {
			mode = SyncDcSync0
		}
		if err := ConfigureSyncMode(m.sockets, m.generalSocket, m.clock, s, mode, cycleTimeNs); err != nil {
			return err
		}
	}

	m.pdataTask = task.NewLogicalProcessData(logicalBase, imageSize, expectedWkc)
	m.pdataSocket = socket.NewSocket(imageSize)
	if _, ok := m.sockets.Insert(m.pdataSocket); !ok {
		return ethercat.ErrFrameCapacity
	}

	m.rxErrorTask = task.NewRxErrorReader(ethercat.All(uint16(len(m.slaves))))
	m.alStateTask = task.NewAlStateReader(ethercat.All(uint16(len(m.slaves))))

	return nil
}

// ProcessOneCycle runs one poll/advance round. It returns the
// same cycle count, unchanged, when poll_tx_rx made no progress this round;
// callers loop until the count advances.
func (m *Master) ProcessOneCycle(now ethercat.SystemTime) uint64 {
	complete, err := m.sockets.PollTxRx()
	if err != nil {
		log.WithError(err).Warn("[MASTER] poll_tx_rx failed")
		return m.cycleCount
	}
	if !complete {
		return m.cycleCount
	}

	if m.pdataTask != nil {
		task.ProcessOneStep(m.pdataSocket, m.pdataTask, now)
	}
	if m.dcDriftTask != nil {
		task.ProcessOneStep(m.dcDriftSocket, m.dcDriftTask, now)
	}
	if m.rxErrorTask != nil {
		task.ProcessOneStep(m.rxErrorSocket, m.rxErrorTask, now)
	}
	if m.alStateTask != nil {
		task.ProcessOneStep(m.alStateSocket, m.alStateTask, now)
	}

	m.cycleCount++
	m.updateMetrics()
	return m.cycleCount
}

// ProcessImage exposes the cyclic process-data buffer the caller reads
// inputs from and writes outputs into between cycles.
func (m *Master) ProcessImage() []byte {
	if m.pdataTask == nil {
		return nil
	}
	return m.pdataTask.Image()
}

// Slaves returns the live per-slave state built during Bringup.
func (m *Master) Slaves() []*slave.Slave { return m.slaves }

// Metrics returns the prometheus.Collector exposing this master's
// steady-state counters.
func (m *Master) Metrics() *Metrics { return m.metrics }

func (m *Master) updateMetrics() {
	if m.pdataTask != nil {
		m.metrics.setPdataCounters(m.pdataTask.InvalidWkcCount(), m.pdataTask.LostDatagramCount())
	}
	if m.dcDriftTask != nil {
		m.metrics.setDcCounters(m.dcDriftTask.InvalidWkcCount(), m.dcDriftTask.LostReplyCount())
	}
	if m.rxErrorTask != nil {
		m.metrics.setRxErrorLost(m.rxErrorTask.LostReplyCount())
	}
	if reader, ok := m.alStateTask.(*task.AlStateReader); ok && reader.IsFinished() {
		m.metrics.setAlState(reader.Result().State)
		m.metrics.setAlStateLost(reader.LostReplyCount())
	}
}

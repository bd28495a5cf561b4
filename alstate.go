package ethercat

// AlState is the slave application-layer lifecycle state, reported in the
// low nibble of the AL-status register.
type AlState uint8

const (
	AlStateInit         AlState = 0x1
	AlStatePreOp        AlState = 0x2
	AlStateBoot         AlState = 0x3
	AlStateSafeOp       AlState = 0x4
	AlStateOp           AlState = 0x8
	AlStateInvalid      AlState = 0xff
)

func (s AlState) String() string {
	switch s {
	case AlStateInit:
		return "Init"
	case AlStatePreOp:
		return "PreOp"
	case AlStateBoot:
		return "Boot"
	case AlStateSafeOp:
		return "SafeOp"
	case AlStateOp:
		return "Op"
	default:
		return "Invalid"
	}
}

// AlStatusCode enumerates the subset of the standardized AL-status-code
// register values a slave may report alongside its error bit.
type AlStatusCode uint16

const (
	AlStatusNoError                  AlStatusCode = 0x0000
	AlStatusUnspecifiedError         AlStatusCode = 0x0001
	AlStatusNoMemory                 AlStatusCode = 0x0002
	AlStatusInvalidRequestedState    AlStatusCode = 0x0011
	AlStatusUnknownRequestedState    AlStatusCode = 0x0012
	AlStatusBootNotSupported         AlStatusCode = 0x0013
	AlStatusInvalidMailboxConfig     AlStatusCode = 0x0016
	AlStatusInvalidSyncManagerConfig AlStatusCode = 0x0017
	AlStatusInvalidInputConfig       AlStatusCode = 0x001E
	AlStatusInvalidOutputConfig      AlStatusCode = 0x001D
	AlStatusSyncError                AlStatusCode = 0x001B
	AlStatusWatchdog                 AlStatusCode = 0x001C
	AlStatusInvalidDcSyncConfig      AlStatusCode = 0x0030
)

func (c AlStatusCode) String() string {
	switch c {
	case AlStatusNoError:
		return "NoError"
	case AlStatusUnspecifiedError:
		return "UnspecifiedError"
	case AlStatusNoMemory:
		return "NoMemory"
	case AlStatusInvalidRequestedState:
		return "InvalidRequestedState"
	case AlStatusUnknownRequestedState:
		return "UnknownRequestedState"
	case AlStatusBootNotSupported:
		return "BootNotSupported"
	case AlStatusInvalidMailboxConfig:
		return "InvalidMailboxConfig"
	case AlStatusInvalidSyncManagerConfig:
		return "InvalidSyncManagerConfig"
	case AlStatusInvalidInputConfig:
		return "InvalidInputConfig"
	case AlStatusInvalidOutputConfig:
		return "InvalidOutputConfig"
	case AlStatusSyncError:
		return "SyncError"
	case AlStatusWatchdog:
		return "Watchdog"
	case AlStatusInvalidDcSyncConfig:
		return "InvalidDcSyncConfig"
	default:
		return "Unknown"
	}
}

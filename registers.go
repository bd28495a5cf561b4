package ethercat

// Register addresses in a slave's ESC memory map that the task layer reads
// and writes. Names and offsets follow the standardized EtherCAT register
// set; sizes are documented alongside each task that uses them.
const (
	RegDLInformation       uint16 = 0x0000
	RegFixedStationAddress uint16 = 0x0010
	RegDLControl           uint16 = 0x0100
	RegDLStatus            uint16 = 0x0110
	RegAlControl           uint16 = 0x0120
	RegAlStatus            uint16 = 0x0130
	RegPdiControl          uint16 = 0x0140
	RegRxErrorCounter      uint16 = 0x0300
	RegWatchdogDivider     uint16 = 0x0400
	RegDLUserWatchdog      uint16 = 0x0410
	RegSyncManChWatchdog   uint16 = 0x0420
	RegSIIAccess           uint16 = 0x0500
	RegSIIControl          uint16 = 0x0502
	RegSIIAddress          uint16 = 0x0504
	RegSIIData             uint16 = 0x0508
	RegFMMU0               uint16 = 0x0600
	RegFMMUStride          uint16 = 0x0010
	RegSM0                 uint16 = 0x0800
	RegSMStride            uint16 = 0x0008
	RegDcReceiveTime       uint16 = 0x0900
	RegDcSystemTime        uint16 = 0x0910
	RegDcSystemTimeOffset  uint16 = 0x0920
	RegDcTransmissionDelay uint16 = 0x0928
	RegDcCyclicControl     uint16 = 0x0980
	RegDcSync0CycleTime    uint16 = 0x09A0
	RegDcSync1CycleTime    uint16 = 0x09A4
	RegDcStartTime         uint16 = 0x0990
)

// SII EEPROM word addresses: four identity words and
// four mailbox-geometry words.
const (
	SiiVendorID           uint16 = 0x0008
	SiiProductCode        uint16 = 0x000A
	SiiRevisionNumber     uint16 = 0x000C
	SiiMailboxProtocol    uint16 = 0x001C
	SiiStandardRxMbxSize  uint16 = 0x0018
	SiiStandardRxMbxAddr  uint16 = 0x0019
	SiiStandardTxMbxSize  uint16 = 0x001A
	SiiStandardTxMbxAddr  uint16 = 0x001B
)

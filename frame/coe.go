package frame

import "encoding/binary"

// CoeService enumerates the CoE header's service-type nibble.
type CoeService uint8

const (
	CoeServiceEmergency           CoeService = 1
	CoeServiceSdoRequest          CoeService = 2
	CoeServiceSdoResponse         CoeService = 3
	CoeServiceTxPdo               CoeService = 4
	CoeServiceRxPdo               CoeService = 5
	CoeServiceTxPdoRemoteRequest  CoeService = 6
	CoeServiceRxPdoRemoteRequest  CoeService = 7
	CoeServiceSdoInfo             CoeService = 8
)

// CoeHeader is the 2-byte header that follows the mailbox header for CoE
// messages: number(9)+reserved(3)+service-type(4).
type CoeHeader []byte

func (h CoeHeader) raw() uint16 { return binary.LittleEndian.Uint16(h) }

func (h CoeHeader) Number() uint16     { return h.raw() & 0x01ff }
func (h CoeHeader) Service() CoeService { return CoeService(h.raw() >> 12) }

func (h CoeHeader) SetNumber(n uint16) {
	v := (h.raw() &^ 0x01ff) | (n & 0x01ff)
	binary.LittleEndian.PutUint16(h, v)
}

func (h CoeHeader) SetService(s CoeService) {
	v := (h.raw() & 0x01ff) | (uint16(s) << 12)
	binary.LittleEndian.PutUint16(h, v)
}

func (h CoeHeader) Init(number uint16, service CoeService) {
	h.SetNumber(number)
	h.SetService(service)
}

// CommandSpecifier is the SDO service header's command-specifier field.
type CommandSpecifier uint8

const (
	SpecDownloadSegmentRequest CommandSpecifier = 0
	SpecDownloadRequest        CommandSpecifier = 1
	SpecUploadRequest          CommandSpecifier = 2
	SpecUploadResponse         CommandSpecifier = 2
	SpecUploadSegmentRequest   CommandSpecifier = 3
	SpecDownloadResponse       CommandSpecifier = 3
	SpecAbort                  CommandSpecifier = 4
)

// ServiceHeader is a view over the 8-byte SDO service-data header: a 1-byte
// flag byte (size-indicator(1), transfer-type(1), data-set-size(2),
// complete-access(1), command-specifier(3)), a 16-bit index, an 8-bit
// sub-index, and a 32-bit data/complete-size field.
type ServiceHeader []byte

func (h ServiceHeader) SizeIndicator() bool { return h[0]&0x01 != 0 }
func (h ServiceHeader) Expedited() bool     { return h[0]&0x02 != 0 }
func (h ServiceHeader) DataSetSize() uint8  { return (h[0] >> 2) & 0x03 }
func (h ServiceHeader) CompleteAccess() bool { return h[0]&0x10 != 0 }
func (h ServiceHeader) CommandSpecifier() CommandSpecifier {
	return CommandSpecifier((h[0] >> 5) & 0x07)
}

func (h ServiceHeader) Index() uint16    { return binary.LittleEndian.Uint16(h[1:3]) }
func (h ServiceHeader) SubIndex() uint8  { return h[3] }
func (h ServiceHeader) DataField() []byte { return h[4:8] }

// ExpeditedSize returns the expedited payload length in bytes (1-4), valid
// only when SizeIndicator and Expedited are both set.
func (h ServiceHeader) ExpeditedSize() int { return 4 - int(h.DataSetSize()) }

func (h ServiceHeader) CompleteSize() uint32 { return binary.LittleEndian.Uint32(h[4:8]) }

func (h ServiceHeader) setFlags(sizeIndicator, expedited bool, dataSetSize uint8, completeAccess bool, spec CommandSpecifier) {
	var b byte
	if sizeIndicator {
		b |= 0x01
	}
	if expedited {
		b |= 0x02
	}
	b |= (dataSetSize & 0x03) << 2
	if completeAccess {
		b |= 0x10
	}
	b |= (byte(spec) & 0x07) << 5
	h[0] = b
}

func (h ServiceHeader) SetIndex(v uint16)   { binary.LittleEndian.PutUint16(h[1:3], v) }
func (h ServiceHeader) SetSubIndex(v uint8) { h[3] = v }
func (h ServiceHeader) SetCompleteSize(v uint32) { binary.LittleEndian.PutUint32(h[4:8], v) }

// InitUploadRequest writes a normal (non-expedited) upload request header.
func (h ServiceHeader) InitUploadRequest(index uint16, subIndex uint8, completeAccess bool) {
	h.setFlags(false, false, 0, completeAccess, SpecUploadRequest)
	h.SetIndex(index)
	h.SetSubIndex(subIndex)
	h.SetCompleteSize(0)
}

// InitExpeditedDownload writes an expedited download request carrying size
// (1-4) bytes of payload directly in DataField()[:size].
func (h ServiceHeader) InitExpeditedDownload(index uint16, subIndex uint8, size int, completeAccess bool) {
	h.setFlags(true, true, uint8(4-size), completeAccess, SpecDownloadRequest)
	h.SetIndex(index)
	h.SetSubIndex(subIndex)
}

// InitNormalDownload writes a normal download request header; the caller
// sets the 32-bit complete size in the header's data field (SetCompleteSize)
// and writes the payload into the mailbox body immediately after this header.
func (h ServiceHeader) InitNormalDownload(index uint16, subIndex uint8, completeAccess bool) {
	h.setFlags(true, false, 0, completeAccess, SpecDownloadRequest)
	h.SetIndex(index)
	h.SetSubIndex(subIndex)
}

// AbortCode reads the header's data field as a 32-bit abort code, valid only
// when CommandSpecifier()==SpecAbort.
func (h ServiceHeader) AbortCode() uint32 { return binary.LittleEndian.Uint32(h[4:8]) }

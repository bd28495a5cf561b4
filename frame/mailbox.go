package frame

import "encoding/binary"

// MailboxType enumerates the mailbox protocol carried in a mailbox header's
// type nibble. Only CoE is implemented; the others are named so a header can
// be inspected and rejected cleanly.
type MailboxType uint8

const (
	MailboxTypeError MailboxType = 0
	MailboxTypeAoE   MailboxType = 1
	MailboxTypeEoE   MailboxType = 2
	MailboxTypeCoE   MailboxType = 3
	MailboxTypeFoE   MailboxType = 4
	MailboxTypeSoE   MailboxType = 5
	MailboxTypeVoE   MailboxType = 0xf
)

// MailboxHeader is a view over the 6-byte header that prefixes every mailbox
// message: length(16), station-address(16), channel(6)+priority(2),
// type(4)+count(3)+reserved(1).
type MailboxHeader []byte

func (h MailboxHeader) Length() uint16        { return binary.LittleEndian.Uint16(h[0:2]) }
func (h MailboxHeader) StationAddress() uint16 { return binary.LittleEndian.Uint16(h[2:4]) }
func (h MailboxHeader) Channel() uint8         { return h[4] & 0x3f }
func (h MailboxHeader) Priority() uint8        { return (h[4] >> 6) & 0x03 }
func (h MailboxHeader) Type() MailboxType      { return MailboxType(h[5] & 0x0f) }
func (h MailboxHeader) Count() uint8           { return (h[5] >> 4) & 0x07 }

func (h MailboxHeader) SetLength(v uint16)        { binary.LittleEndian.PutUint16(h[0:2], v) }
func (h MailboxHeader) SetStationAddress(v uint16) { binary.LittleEndian.PutUint16(h[2:4], v) }

func (h MailboxHeader) SetChannel(c uint8) {
	h[4] = (h[4] &^ 0x3f) | (c & 0x3f)
}

func (h MailboxHeader) SetPriority(p uint8) {
	h[4] = (h[4] &^ 0xc0) | ((p & 0x03) << 6)
}

func (h MailboxHeader) SetType(t MailboxType) {
	h[5] = (h[5] &^ 0x0f) | (uint8(t) & 0x0f)
}

func (h MailboxHeader) SetCount(c uint8) {
	h[5] = (h[5] &^ 0x70) | ((c & 0x07) << 4)
}

// Init writes every field of a fresh mailbox header. count must be in
// [1,7]; 0 is reserved ("no counter value used") by the wire protocol.
func (h MailboxHeader) Init(payloadLength uint16, station uint16, channel uint8, priority uint8, typ MailboxType, count uint8) {
	h.SetLength(payloadLength)
	h.SetStationAddress(station)
	h.SetChannel(channel)
	h.SetPriority(priority)
	h.SetType(typ)
	h.SetCount(count)
}

// NextMailboxCount advances the period-7 mailbox counter sequence
// 1,2,3,4,5,6,7,1,... used to detect repeated or dropped mailbox messages.
func NextMailboxCount(count uint8) uint8 {
	if count == 0 || count == 7 {
		return 1
	}
	return count + 1
}

// ErrorResponsePayload is the 4-byte body of a mailbox message whose type is
// MailboxTypeError: a type code and a detail code.
type ErrorResponsePayload []byte

func (p ErrorResponsePayload) ErrorType() uint16 { return binary.LittleEndian.Uint16(p[0:2]) }
func (p ErrorResponsePayload) Detail() uint16    { return binary.LittleEndian.Uint16(p[2:4]) }

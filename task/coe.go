package task

import (
	"github.com/samsamfire/goethercat/frame"

	ethercat "github.com/samsamfire/goethercat"
)

type ServiceErrorKind int

const (
	ServiceErrAbort ServiceErrorKind = iota
	ServiceErrUnexpectedCommandSpecifier
)

// ServiceError reports a CoE-level failure: either an abort code returned by
// the slave's object dictionary, or a reply whose command-specifier didn't
// match what the request expected.
type ServiceError struct {
	Kind       ServiceErrorKind
	AbortCode  uint32
	Specifier  frame.CommandSpecifier
}

func (e *ServiceError) Error() string {
	if e.Kind == ServiceErrAbort {
		return "coe: aborted"
	}
	return "coe: unexpected command specifier in reply"
}

func buildMailboxMessage(mbCount uint8, service frame.CoeService, serviceBodyLen int) ([]byte, frame.ServiceHeader) {
	total := frame.MailboxHeaderSize + 2 + frame.ServiceHeaderSize + serviceBodyLen
	buf := make([]byte, total)
	mbHdr := frame.MailboxHeader(buf[:frame.MailboxHeaderSize])
	mbHdr.Init(uint16(2+frame.ServiceHeaderSize+serviceBodyLen), 0, 0, 0, frame.MailboxTypeCoE, mbCount)
	coeOff := frame.MailboxHeaderSize
	coeHdr := frame.CoeHeader(buf[coeOff : coeOff+2])
	coeHdr.Init(0, service)
	svcOff := coeOff + 2
	svcHdr := frame.ServiceHeader(buf[svcOff : svcOff+frame.ServiceHeaderSize])
	return buf, svcHdr
}

type serviceSubPhase int

const (
	svcWriting serviceSubPhase = iota
	svcReading
	svcDone
)

// ServiceUpload reads one object-dictionary entry through a slave's
// mailbox.
type ServiceUpload struct {
	write *MailboxWrite
	read  *MailboxRead

	phase serviceSubPhase

	result   []byte
	finished bool
	err      error
}

// NewServiceUpload builds an upload of (index, subIndex) against target,
// writing through rxSM and reading the response through txSM. mbCount is
// the slave's next mailbox sequence number (must cycle 1-7,
// advanced by the caller via frame.NextMailboxCount on every call).
func NewServiceUpload(target ethercat.TargetSlave, rxSM, txSM SyncManagerWindow, mbCount uint8, index uint16, subIndex uint8, completeAccess bool) *ServiceUpload {
	buf, svcHdr := buildMailboxMessage(mbCount, frame.CoeServiceSdoRequest, 0)
	svcHdr.InitUploadRequest(index, subIndex, completeAccess)
	return &ServiceUpload{
		write: NewMailboxWrite(target, rxSM, false, buf),
		read:  NewMailboxRead(target, txSM, true),
	}
}

func (u *ServiceUpload) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	switch u.phase {
	case svcWriting:
		return u.write.NextPDU(buf)
	case svcReading:
		return u.read.NextPDU(buf)
	}
	return ethercat.Command{}, 0, false
}

func (u *ServiceUpload) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	switch u.phase {
	case svcWriting:
		u.write.OnReply(payload, wkc, now)
		if !u.write.IsFinished() {
			return
		}
		if err := u.write.Err(); err != nil {
			u.err = err
			u.finished = true
			u.phase = svcDone
			return
		}
		u.phase = svcReading

	case svcReading:
		u.read.OnReply(payload, wkc, now)
		if !u.read.IsFinished() {
			return
		}
		if err := u.read.Err(); err != nil {
			u.err = err
			u.finished = true
			u.phase = svcDone
			return
		}
		u.parse()
	}
}

func (u *ServiceUpload) parse() {
	reply := u.read.Payload()
	svcOff := frame.MailboxHeaderSize + 2
	svcHdr := frame.ServiceHeader(reply[svcOff : svcOff+frame.ServiceHeaderSize])
	switch svcHdr.CommandSpecifier() {
	case frame.SpecUploadResponse:
		if svcHdr.Expedited() {
			n := svcHdr.ExpeditedSize()
			u.result = append([]byte(nil), svcHdr.DataField()[:n]...)
		} else {
			n := svcHdr.CompleteSize()
			body := reply[svcOff+frame.ServiceHeaderSize:]
			if uint32(len(body)) < n {
				n = uint32(len(body))
			}
			u.result = append([]byte(nil), body[:n]...)
		}
	case frame.SpecAbort:
		u.err = &ServiceError{Kind: ServiceErrAbort, AbortCode: svcHdr.AbortCode()}
	default:
		u.err = &ServiceError{Kind: ServiceErrUnexpectedCommandSpecifier, Specifier: svcHdr.CommandSpecifier()}
	}
	u.finished = true
	u.phase = svcDone
}

func (u *ServiceUpload) IsFinished() bool { return u.finished }
func (u *ServiceUpload) Err() error       { return u.err }
func (u *ServiceUpload) Result() []byte   { return u.result }

// ServiceDownload writes one object-dictionary entry (
// mirrored). data longer than 4 bytes is sent as a normal (non-expedited)
// transfer; 1-4 bytes go expedited, packed directly into the header.
type ServiceDownload struct {
	write *MailboxWrite
	read  *MailboxRead

	phase    serviceSubPhase
	finished bool
	err      error
}

func NewServiceDownload(target ethercat.TargetSlave, rxSM, txSM SyncManagerWindow, mbCount uint8, index uint16, subIndex uint8, data []byte, completeAccess bool) *ServiceDownload {
	var buf []byte
	var svcHdr frame.ServiceHeader
	if len(data) <= 4 && len(data) > 0 {
		buf, svcHdr = buildMailboxMessage(mbCount, frame.CoeServiceSdoRequest, 0)
		svcHdr.InitExpeditedDownload(index, subIndex, len(data), completeAccess)
		copy(svcHdr.DataField(), data)
	} else {
		buf, svcHdr = buildMailboxMessage(mbCount, frame.CoeServiceSdoRequest, len(data))
		svcHdr.InitNormalDownload(index, subIndex, completeAccess)
		svcHdr.SetCompleteSize(uint32(len(data)))
		body := buf[frame.MailboxHeaderSize+2+frame.ServiceHeaderSize:]
		copy(body, data)
	}
	return &ServiceDownload{
		write: NewMailboxWrite(target, rxSM, false, buf),
		read:  NewMailboxRead(target, txSM, true),
	}
}

func (d *ServiceDownload) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	switch d.phase {
	case svcWriting:
		return d.write.NextPDU(buf)
	case svcReading:
		return d.read.NextPDU(buf)
	}
	return ethercat.Command{}, 0, false
}

func (d *ServiceDownload) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	switch d.phase {
	case svcWriting:
		d.write.OnReply(payload, wkc, now)
		if !d.write.IsFinished() {
			return
		}
		if err := d.write.Err(); err != nil {
			d.err = err
			d.finished = true
			d.phase = svcDone
			return
		}
		d.phase = svcReading

	case svcReading:
		d.read.OnReply(payload, wkc, now)
		if !d.read.IsFinished() {
			return
		}
		if err := d.read.Err(); err != nil {
			d.err = err
			d.finished = true
			d.phase = svcDone
			return
		}
		d.parse()
	}
}

func (d *ServiceDownload) parse() {
	reply := d.read.Payload()
	svcOff := frame.MailboxHeaderSize + 2
	svcHdr := frame.ServiceHeader(reply[svcOff : svcOff+frame.ServiceHeaderSize])
	switch svcHdr.CommandSpecifier() {
	case frame.SpecDownloadResponse:
	case frame.SpecAbort:
		d.err = &ServiceError{Kind: ServiceErrAbort, AbortCode: svcHdr.AbortCode()}
	default:
		d.err = &ServiceError{Kind: ServiceErrUnexpectedCommandSpecifier, Specifier: svcHdr.CommandSpecifier()}
	}
	d.finished = true
	d.phase = svcDone
}

func (d *ServiceDownload) IsFinished() bool { return d.finished }
func (d *ServiceDownload) Err() error       { return d.err }

package astitsfilt

import (
	"github.com/pkg/errors"
)

// Packet constants
const (
	PacketSize = 188
	syncByte   = '\x47'
)

// Scrambling Controls
const (
	ScramblingControlNotScrambled         = 0
	ScramblingControlReservedForFutureUse = 1
	ScramblingControlScrambledWithEvenKey = 2
	ScramblingControlScrambledWithOddKey  = 3
)

// ErrIncompletePacket is returned when less than PacketSize bytes are provided
var ErrIncompletePacket = errors.New("astitsfilt: incomplete packet")

// Packet represents a transport stream packet
// It's a read only view over the raw bytes: fields are decoded on demand
// https://en.wikipedia.org/wiki/MPEG_transport_stream
type Packet struct {
	b [PacketSize]byte
}

// PacketHeader represents a packet header
type PacketHeader struct {
	ContinuityCounter          uint8 // Sequence number of payload packets (0x00 to 0x0F) within each stream (except PID 8191)
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool   // Set when a PES, PSI, or DVB-MIP packet begins immediately following the header.
	PID                        uint16 // Packet Identifier, describing the payload data.
	TransportErrorIndicator    bool   // Set when a demodulator can't correct errors from FEC data; indicating the packet is corrupt.
	TransportPriority          bool   // Set when the current packet has a higher priority than other packets with the same PID.
	TransportScramblingControl uint8
}

// PacketAdaptationField represents a packet adaptation field
type PacketAdaptationField struct {
	DiscontinuityIndicator            bool // Set if current TS packet is in a discontinuity state with respect to either the continuity counter or the program clock reference
	ElementaryStreamPriorityIndicator bool // Set when this stream should be considered "high priority"
	HasAdaptationExtensionField       bool
	HasOPCR                           bool
	HasPCR                            bool
	HasTransportPrivateData           bool
	HasSplicingCountdown              bool
	Length                            int
	OPCR                              *ClockReference // Original Program clock reference. Helps when one TS is copied into another
	PCR                               *ClockReference // Program clock reference
	RandomAccessIndicator             bool            // Set when the stream may be decoded without errors from this point
	SpliceCountdown                   int             // Indicates how many TS packets from this one a splicing point occurs (Two's complement signed; may be negative)
}

// NewPacket creates a packet out of the first PacketSize bytes
// The sync byte is not checked here, it's up to the reader to find it
func NewPacket(bs []byte) (p *Packet, err error) {
	if len(bs) < PacketSize {
		err = errors.Wrapf(ErrIncompletePacket, "astitsfilt: %d bytes provided", len(bs))
		return
	}
	p = &Packet{}
	copy(p.b[:], bs)
	return
}

// Bytes returns the raw packet
func (p *Packet) Bytes() []byte { return p.b[:] }

// Header

// SyncByte returns the sync byte, 0x47 for a valid packet
func (p *Packet) SyncByte() uint8 { return uint8(readUint(p.b[:], 0, 8)) }

// TransportErrorIndicator returns true if the packet is known to be corrupted
func (p *Packet) TransportErrorIndicator() bool { return readBit(p.b[:], 8) }

// PayloadUnitStartIndicator returns true if a PES packet or a PSI table starts in this packet
func (p *Packet) PayloadUnitStartIndicator() bool { return readBit(p.b[:], 9) }

// TransportPriority returns the transport priority flag
func (p *Packet) TransportPriority() bool { return readBit(p.b[:], 10) }

// PID returns the packet identifier
func (p *Packet) PID() uint16 { return uint16(readUint(p.b[:], 11, 13)) }

// TransportScramblingControl returns the scrambling control
func (p *Packet) TransportScramblingControl() uint8 { return uint8(readUint(p.b[:], 24, 2)) }

// HasAdaptationField returns true if the packet carries an adaptation field
func (p *Packet) HasAdaptationField() bool { return readBit(p.b[:], 26) }

// HasPayload returns true if the packet carries a payload
func (p *Packet) HasPayload() bool { return readBit(p.b[:], 27) }

// ContinuityCounter returns the 4-bit per PID sequence number
func (p *Packet) ContinuityCounter() uint8 { return uint8(readUint(p.b[:], 28, 4)) }

// Adaptation field
// These values are only meaningful if HasAdaptationField returns true

// AdaptationFieldLength returns the number of bytes following the length
func (p *Packet) AdaptationFieldLength() int { return int(readUint(p.b[:], 32, 8)) }

// DiscontinuityIndicator returns true if the packet is in a discontinuity state
func (p *Packet) DiscontinuityIndicator() bool { return readBit(p.b[:], 40) }

// RandomAccessIndicator returns true if the stream can be decoded from this packet
func (p *Packet) RandomAccessIndicator() bool { return readBit(p.b[:], 41) }

// ElementaryStreamPriorityIndicator returns the elementary stream priority flag
func (p *Packet) ElementaryStreamPriorityIndicator() bool { return readBit(p.b[:], 42) }

// HasPCR returns true if the adaptation field carries a PCR
func (p *Packet) HasPCR() bool { return readBit(p.b[:], 43) }

// HasOPCR returns true if the adaptation field carries an OPCR
func (p *Packet) HasOPCR() bool { return readBit(p.b[:], 44) }

// HasSplicingCountdown returns true if the adaptation field carries a splice countdown
func (p *Packet) HasSplicingCountdown() bool { return readBit(p.b[:], 45) }

// HasTransportPrivateData returns true if the adaptation field carries private data
func (p *Packet) HasTransportPrivateData() bool { return readBit(p.b[:], 46) }

// HasAdaptationExtensionField returns true if the adaptation field carries an extension
func (p *Packet) HasAdaptationExtensionField() bool { return readBit(p.b[:], 47) }

// PCR returns the program clock reference
func (p *Packet) PCR() *ClockReference {
	return parsePCR(p.b[6:12])
}

// OPCR returns the original program clock reference, located after the PCR if any
func (p *Packet) OPCR() *ClockReference {
	o := 6
	if p.HasPCR() {
		o += 6
	}
	return parsePCR(p.b[o : o+6])
}

// SpliceCountdown returns the splice countdown, located after the PCR and the OPCR if any
func (p *Packet) SpliceCountdown() int {
	o := 6
	if p.HasPCR() {
		o += 6
	}
	if p.HasOPCR() {
		o += 6
	}
	return int(int8(p.b[o]))
}

// Payload returns the payload content
// It's only meaningful if HasPayload returns true but it's always a valid slice
func (p *Packet) Payload() []byte {
	return p.b[payloadOffset(p):]
}

// payloadOffset returns the payload offset
func payloadOffset(p *Packet) (offset int) {
	offset = 4
	if p.HasAdaptationField() {
		offset += 1 + p.AdaptationFieldLength()
	}
	if offset > PacketSize {
		offset = PacketSize
	}
	return
}

// Header returns a snapshot of the packet header
func (p *Packet) Header() PacketHeader {
	return PacketHeader{
		ContinuityCounter:          p.ContinuityCounter(),
		HasAdaptationField:         p.HasAdaptationField(),
		HasPayload:                 p.HasPayload(),
		PayloadUnitStartIndicator:  p.PayloadUnitStartIndicator(),
		PID:                        p.PID(),
		TransportErrorIndicator:    p.TransportErrorIndicator(),
		TransportPriority:          p.TransportPriority(),
		TransportScramblingControl: p.TransportScramblingControl(),
	}
}

// AdaptationField returns a snapshot of the packet adaptation field or nil if there's none
func (p *Packet) AdaptationField() (a *PacketAdaptationField) {
	if !p.HasAdaptationField() {
		return
	}

	// Create adaptation field
	a = &PacketAdaptationField{Length: p.AdaptationFieldLength()}

	// Flags are only present if length is valid
	if a.Length == 0 {
		return
	}
	a.DiscontinuityIndicator = p.DiscontinuityIndicator()
	a.RandomAccessIndicator = p.RandomAccessIndicator()
	a.ElementaryStreamPriorityIndicator = p.ElementaryStreamPriorityIndicator()
	a.HasPCR = p.HasPCR()
	a.HasOPCR = p.HasOPCR()
	a.HasSplicingCountdown = p.HasSplicingCountdown()
	a.HasTransportPrivateData = p.HasTransportPrivateData()
	a.HasAdaptationExtensionField = p.HasAdaptationExtensionField()

	// Optional fields must fit in the adaptation field
	// 1 byte of flags followed by 6 bytes per clock reference and 1 byte of countdown
	l := 1
	if a.HasPCR {
		if l += 6; l <= a.Length {
			a.PCR = p.PCR()
		}
	}
	if a.HasOPCR {
		if l += 6; l <= a.Length {
			a.OPCR = p.OPCR()
		}
	}
	if a.HasSplicingCountdown {
		if l++; l <= a.Length {
			a.SpliceCountdown = p.SpliceCountdown()
		}
	}
	return
}

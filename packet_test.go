package astitsfilt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/assert"
)

// packetBytes builds a packet, the adaptation field is only written if the header says so
// Remaining bytes are stuffed with 0xff
func packetBytes(h PacketHeader, af []byte, payload []byte) []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write(uint8(syncByte))                  // Sync byte
	w.Write(h.TransportErrorIndicator)        // Transport error indicator
	w.Write(h.PayloadUnitStartIndicator)      // Payload unit start indicator
	w.Write(h.TransportPriority)              // Transport priority
	w.WriteN(h.PID, 13)                       // PID
	w.WriteN(h.TransportScramblingControl, 2) // Scrambling control
	w.Write(h.HasAdaptationField)             // Adaptation field flag
	w.Write(h.HasPayload)                     // Payload flag
	w.WriteN(h.ContinuityCounter, 4)          // Continuity counter
	if h.HasAdaptationField {
		w.Write(uint8(len(af))) // Adaptation field length
		w.Write(af)             // Adaptation field
	}
	w.Write(payload)

	// Stuffing
	w.Write(bytes.Repeat([]byte{0xff}, PacketSize-buf.Len()))
	return buf.Bytes()
}

// mustNewPacket builds a packet out of raw bytes that are known to be valid
func mustNewPacket(t *testing.T, b []byte) *Packet {
	p, err := NewPacket(b)
	assert.NoError(t, err)
	return p
}

var packetHeader = PacketHeader{
	ContinuityCounter:          10,
	HasAdaptationField:         true,
	HasPayload:                 true,
	PayloadUnitStartIndicator:  true,
	PID:                        5461,
	TransportErrorIndicator:    true,
	TransportPriority:          true,
	TransportScramblingControl: ScramblingControlScrambledWithEvenKey,
}

var pcr = &ClockReference{
	Base:      5726623061,
	Extension: 341,
}

func pcrBytes() []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write("101010101010101010101010101010101") // Base
	w.Write("111111")                            // Reserved
	w.Write("101010101")                         // Extension
	return buf.Bytes()
}

var opcr = &ClockReference{
	Base:      1,
	Extension: 2,
}

func opcrBytes() []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.WriteN(uint64(1), 33) // Base
	w.Write("111111")       // Reserved
	w.WriteN(uint16(2), 9)  // Extension
	return buf.Bytes()
}

var packetAdaptationField = &PacketAdaptationField{
	DiscontinuityIndicator:            true,
	ElementaryStreamPriorityIndicator: true,
	HasAdaptationExtensionField:       false,
	HasOPCR:                           true,
	HasPCR:                            true,
	HasTransportPrivateData:           false,
	HasSplicingCountdown:              true,
	Length:                            20,
	OPCR:                              opcr,
	PCR:                               pcr,
	RandomAccessIndicator:             true,
	SpliceCountdown:                   -2,
}

func packetAdaptationFieldBytes() []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write("1")                           // Discontinuity indicator
	w.Write("1")                           // Random access indicator
	w.Write("1")                           // Elementary stream priority indicator
	w.Write("1")                           // PCR flag
	w.Write("1")                           // OPCR flag
	w.Write("1")                           // Splicing point flag
	w.Write("0")                           // Transport data flag
	w.Write("0")                           // Adaptation field extension flag
	w.Write(pcrBytes())                    // PCR
	w.Write(opcrBytes())                   // OPCR
	w.Write(uint8(0xfe))                   // Splice countdown
	w.Write(bytes.Repeat([]byte{0xff}, 6)) // Stuffing
	return buf.Bytes()
}

func TestNewPacket(t *testing.T) {
	// Incomplete
	_, err := NewPacket(make([]byte, PacketSize-1))
	assert.True(t, errors.Is(err, ErrIncompletePacket))

	// Extra bytes are ignored
	b := packetBytes(PacketHeader{HasPayload: true, PID: 1}, nil, []byte("payload"))
	p, err := NewPacket(append(b, 0x47, 0x00))
	assert.NoError(t, err)
	assert.Equal(t, b, p.Bytes())

	// Bytes are copied
	b[4] = 'P'
	assert.Equal(t, []byte("payload"), p.Payload()[:7])
}

func TestPacketHeader(t *testing.T) {
	p := mustNewPacket(t, packetBytes(packetHeader, packetAdaptationFieldBytes(), []byte("payload")))
	assert.Equal(t, uint8(syncByte), p.SyncByte())
	assert.Equal(t, packetHeader, p.Header())
}

func TestPacketPAT(t *testing.T) {
	b := append([]byte{0x47, 0x40, 0x00, 0x10}, bytes.Repeat([]byte{0xff}, PacketSize-4)...)
	p := mustNewPacket(t, b)
	assert.Equal(t, uint16(0), p.PID())
	assert.True(t, p.PayloadUnitStartIndicator())
	assert.False(t, p.HasAdaptationField())
	assert.True(t, p.HasPayload())
	assert.False(t, p.TransportErrorIndicator())
	assert.Equal(t, uint8(0), p.ContinuityCounter())
	assert.Equal(t, b[4:], p.Payload())
	assert.Nil(t, p.AdaptationField())
}

func TestPacketAdaptationField(t *testing.T) {
	p := mustNewPacket(t, packetBytes(packetHeader, packetAdaptationFieldBytes(), []byte("payload")))
	assert.Equal(t, 20, p.AdaptationFieldLength())
	assert.Equal(t, packetAdaptationField, p.AdaptationField())
	assert.Equal(t, pcr, p.PCR())
	assert.Equal(t, opcr, p.OPCR())
	assert.Equal(t, -2, p.SpliceCountdown())
	assert.Equal(t, []byte("payload"), p.Payload()[:7])
	assert.Len(t, p.Payload(), PacketSize-4-1-20)

	// Empty adaptation field
	p = mustNewPacket(t, packetBytes(PacketHeader{HasAdaptationField: true, HasPayload: true}, []byte{}, []byte("payload")))
	assert.Equal(t, &PacketAdaptationField{}, p.AdaptationField())
	assert.Equal(t, []byte("payload"), p.Payload()[:7])

	// Adaptation field without payload
	p = mustNewPacket(t, packetBytes(PacketHeader{HasAdaptationField: true}, bytes.Repeat([]byte{0x00}, 183), nil))
	assert.False(t, p.HasPayload())
	assert.Len(t, p.Payload(), 0)
}

func TestPayloadOffset(t *testing.T) {
	b := packetBytes(PacketHeader{HasAdaptationField: true, HasPayload: true}, []byte{0x00, 0xff}, nil)
	assert.Equal(t, 7, payloadOffset(mustNewPacket(t, b)))

	// Invalid adaptation field length
	b[4] = 0xff
	assert.Equal(t, PacketSize, payloadOffset(mustNewPacket(t, b)))
}

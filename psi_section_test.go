package astitsfilt

import (
	"bytes"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/icza/bitio"
	"github.com/stretchr/testify/assert"
)

type psiSectionSyntaxHeader struct {
	lastSectionNumber uint8
	sectionNumber     uint8
	tableIDExtension  uint16
	versionNumber     uint8
}

// psiSectionBytes builds a complete section with its CRC32
func psiSectionBytes(tableID uint8, h psiSectionSyntaxHeader, data []byte) []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write(tableID)                    // Table ID
	w.Write("1")                        // Syntax section indicator
	w.Write("0")                        // Private bit
	w.Write("11")                       // Reserved
	w.WriteN(uint16(5+len(data)+4), 12) // Section length
	w.Write(h.tableIDExtension)         // Table ID extension
	w.Write("11")                       // Reserved
	w.WriteN(h.versionNumber, 5)        // Version number
	w.Write("1")                        // Current/next indicator
	w.Write(h.sectionNumber)            // Section number
	w.Write(h.lastSectionNumber)        // Last section number
	w.Write(data)                       // Data
	w.Write(computeCRC32(buf.Bytes()))  // CRC32
	return buf.Bytes()
}

func patBytes(es ...patEntry) []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	for _, e := range es {
		w.Write(e.ProgramNumber)     // Program number
		w.Write("111")               // Reserved bits
		w.WriteN(e.ProgramMapID, 13) // Program map ID
	}
	return buf.Bytes()
}

func patSectionBytes(h psiSectionSyntaxHeader, es ...patEntry) []byte {
	return psiSectionBytes(PSITableIDPAT, h, patBytes(es...))
}

type pmtStream struct {
	descriptors []byte
	pid         uint16
	streamType  StreamType
}

func pmtBytes(pcrPID uint16, programDescriptors []byte, ss ...pmtStream) []byte {
	buf := &bytes.Buffer{}
	w := bitio.NewWriter(buf)
	w.WriteBits(0x7, 3)                              // Reserved bits
	w.WriteBits(uint64(pcrPID), 13)                  // PCR PID
	w.WriteBits(0xf, 4)                              // Reserved
	w.WriteBits(uint64(len(programDescriptors)), 12) // Program info length
	w.Write(programDescriptors)                      // Program descriptors
	for _, s := range ss {
		w.WriteByte(uint8(s.streamType))            // Stream type
		w.WriteBits(0x7, 3)                         // Reserved
		w.WriteBits(uint64(s.pid), 13)              // Elementary PID
		w.WriteBits(0xf, 4)                         // Reserved
		w.WriteBits(uint64(len(s.descriptors)), 12) // ES info length
		w.Write(s.descriptors)                      // Descriptors
	}
	w.Close()
	return buf.Bytes()
}

func pmtSectionBytes(h psiSectionSyntaxHeader, pcrPID uint16, ss ...pmtStream) []byte {
	return psiSectionBytes(PSITableIDPMT, h, pmtBytes(pcrPID, nil, ss...))
}

func newTestSection(b []byte) psiSection {
	return psiSection{b: b, size: len(b)}
}

func TestPSISectionPAT(t *testing.T) {
	s := patSection{newTestSection(testDataPat)}
	assert.True(t, s.canDetermineSectionSize())
	assert.True(t, s.isComplete())
	assert.True(t, s.isLastSection())
	assert.Equal(t, uint8(PSITableIDPAT), s.tableID())
	assert.True(t, s.sectionSyntaxIndicator())
	assert.Equal(t, 13, s.sectionLength())
	assert.Equal(t, 16, s.sectionSize())
	assert.Equal(t, uint16(1), s.tableIDExtension())
	assert.Equal(t, uint8(16), s.versionNumber())
	assert.True(t, s.currentNextIndicator())
	assert.Equal(t, uint8(0), s.sectionNumber())
	assert.Equal(t, uint8(0), s.lastSectionNumber())
	assert.Equal(t, uint32(0xe295f69d), s.crc32())

	var es []patEntry
	for i := s.iterator(); i.hasNext(); {
		es = append(es, i.nextEntry())
	}
	assert.Equal(t, []patEntry{{ProgramMapID: 0x1000, ProgramNumber: 1}}, es)
}

func TestPSISectionPMT(t *testing.T) {
	s := pmtSection{newTestSection(testDataPmt)}
	assert.True(t, s.isComplete())
	assert.Equal(t, uint8(PSITableIDPMT), s.tableID())
	assert.Equal(t, 32, s.sectionSize())
	assert.Equal(t, uint8(26), s.versionNumber())
	assert.Equal(t, uint16(0x100), s.pcrPID())
	assert.Equal(t, 0, s.programInfoLength())

	var es []pmtEntry
	for i := s.iterator(); i.hasNext(); {
		es = append(es, i.nextEntry())
	}
	assert.Equal(t, []pmtEntry{
		{ElementaryPID: 0x100, StreamType: StreamTypeH264Video},
		{ElementaryPID: 0x104, ESInfoLength: 6, StreamType: StreamTypeADTS},
	}, es)

	// Iterators can be restarted
	i := s.iterator()
	assert.True(t, i.hasNext())
	assert.Equal(t, uint16(0x100), i.nextEntry().ElementaryPID)
}

func TestPSISectionPMTWithDescriptors(t *testing.T) {
	b := psiSectionBytes(PSITableIDPMT, psiSectionSyntaxHeader{tableIDExtension: 1}, pmtBytes(0x21, []byte{0x0e, 0x03, 0xc0, 0x00, 0x00},
		pmtStream{descriptors: []byte{0x52, 0x01, 0x01}, pid: 0x21, streamType: StreamTypeMPEG2Video},
		pmtStream{pid: 0x22, streamType: StreamTypeMPEG2Video},
		pmtStream{descriptors: []byte{0x0a, 0x04, 0x65, 0x6e, 0x67, 0x00}, pid: 0x30, streamType: StreamTypeADTS},
	))
	s := pmtSection{newTestSection(b)}
	assert.Equal(t, uint16(0x21), s.pcrPID())
	assert.Equal(t, 5, s.programInfoLength())

	var es []pmtEntry
	for i := s.iterator(); i.hasNext(); {
		es = append(es, i.nextEntry())
	}
	assert.Equal(t, []pmtEntry{
		{ElementaryPID: 0x21, ESInfoLength: 3, StreamType: StreamTypeMPEG2Video},
		{ElementaryPID: 0x22, StreamType: StreamTypeMPEG2Video},
		{ElementaryPID: 0x30, ESInfoLength: 6, StreamType: StreamTypeADTS},
	}, es)
}

func TestPSISectionIncomplete(t *testing.T) {
	// Not even the section length
	s := newTestSection(testDataPat[:2])
	assert.False(t, s.canDetermineSectionSize())
	assert.False(t, s.isComplete())

	// Section length but not the whole section
	s = newTestSection(testDataPat[:15])
	assert.True(t, s.canDetermineSectionSize())
	assert.False(t, s.isComplete())
}

func TestPSISectionNextSection(t *testing.T) {
	s1 := patSectionBytes(psiSectionSyntaxHeader{lastSectionNumber: 1}, patEntry{ProgramMapID: 0x20, ProgramNumber: 1})
	s2 := patSectionBytes(psiSectionSyntaxHeader{lastSectionNumber: 1, sectionNumber: 1}, patEntry{ProgramMapID: 0x40, ProgramNumber: 2})
	b := append(append([]byte{}, s1...), s2...)

	s := newTestSection(b)
	assert.True(t, s.isComplete())
	assert.False(t, s.isLastSection())

	n := s.nextSection()
	assert.Equal(t, len(s1), n.offset)
	assert.Equal(t, len(s2), n.size)
	assert.True(t, n.isComplete())
	assert.True(t, n.isLastSection())
	e := patSection{n}.iterator().nextEntry()
	assert.Equal(t, patEntry{ProgramMapID: 0x40, ProgramNumber: 2}, e)

	// Nothing after the last section
	assert.False(t, n.nextSection().canDetermineSectionSize())
}

func TestPSISectionTooShort(t *testing.T) {
	// Section length is too small to hold a syntax header
	b := []byte{0x02, 0xb0, 0x01, 0xff}
	s := pmtSection{newTestSection(b)}
	assert.True(t, s.isComplete())
	assert.True(t, s.isLastSection())
	assert.False(t, s.iterator().hasNext())
	assert.False(t, patSection{s.psiSection}.iterator().hasNext())

	// Program info length goes past the end of the section
	b = psiSectionBytes(PSITableIDPMT, psiSectionSyntaxHeader{}, []byte{0xe1, 0x00, 0xf0, 0xff, 0x02, 0xe1, 0x01, 0xf0, 0x00})
	assert.False(t, pmtSection{newTestSection(b)}.iterator().hasNext())
}

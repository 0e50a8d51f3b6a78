package astitsfilt

// PSI table IDs
const (
	PSITableIDPAT = 0x00
	PSITableIDPMT = 0x02
)

// Section sizes
const (
	psiSectionHeaderSize = 3  // table_id + section_length
	psiSectionMinSize    = 12 // header + syntax header + CRC32
	psiSectionCRC32Size  = 4
	patEntriesOffset     = 8
	patEntrySize         = 4
	pmtEntriesOffset     = 12
	pmtSectionMinSize    = pmtEntriesOffset + psiSectionCRC32Size
	pmtEntryHeaderSize   = 5
)

// psiSection represents a section stored in a psiBuffer
// It's a view (offset + size) over the buffer bytes and is only valid until the buffer is modified
// Size is the number of bytes available from the start of the section, which may be more or less than
// the section itself
type psiSection struct {
	b      []byte
	offset int
	size   int
}

// bytes returns the bytes available for this section
func (s psiSection) bytes() []byte { return s.b[s.offset : s.offset+s.size] }

// canDetermineSectionSize checks whether the section length has been received
func (s psiSection) canDetermineSectionSize() bool { return s.size >= psiSectionHeaderSize }

// isComplete checks whether the whole section has been received
func (s psiSection) isComplete() bool {
	return s.canDetermineSectionSize() && s.size >= s.sectionSize()
}

// isLastSection checks whether the section is the last one of the table
// Complete sections that are too short to carry section numbers can't be followed by anything we could parse,
// therefore they're considered as last
func (s psiSection) isLastSection() bool {
	if s.sectionSize() < psiSectionMinSize {
		return true
	}
	return s.sectionNumber() == s.lastSectionNumber()
}

// nextSection returns the section following this one in the buffer
func (s psiSection) nextSection() psiSection {
	l := s.sectionSize()
	return psiSection{
		b:      s.b,
		offset: s.offset + l,
		size:   s.size - l,
	}
}

func (s psiSection) tableID() uint8 { return uint8(readUint(s.bytes(), 0, 8)) }
func (s psiSection) sectionSyntaxIndicator() bool { return readBit(s.bytes(), 8) }
func (s psiSection) sectionLength() int { return int(readUint(s.bytes(), 12, 12)) }
func (s psiSection) sectionSize() int { return psiSectionHeaderSize + s.sectionLength() }

// Syntax header
// These values are only valid if the section is complete and at least psiSectionMinSize long
func (s psiSection) tableIDExtension() uint16 { return uint16(readUint(s.bytes(), 24, 16)) }
func (s psiSection) versionNumber() uint8 { return uint8(readUint(s.bytes(), 42, 5)) }
func (s psiSection) currentNextIndicator() bool { return readBit(s.bytes(), 47) }
func (s psiSection) sectionNumber() uint8 { return uint8(readUint(s.bytes(), 48, 8)) }
func (s psiSection) lastSectionNumber() uint8 { return uint8(readUint(s.bytes(), 56, 8)) }

// crc32 returns the CRC32 stored in the last 4 bytes of the section
// It's not checked against the section content
func (s psiSection) crc32() uint32 {
	bs := s.bytes()[s.sectionSize()-psiSectionCRC32Size : s.sectionSize()]
	return uint32(bs[0])<<24 | uint32(bs[1])<<16 | uint32(bs[2])<<8 | uint32(bs[3])
}

// entriesEnd returns the offset of the CRC32 which ends the entries list
func (s psiSection) entriesEnd() int { return s.sectionSize() - psiSectionCRC32Size }

// patSection represents a PAT section
type patSection struct {
	psiSection
}

// patEntry represents a PAT entry
type patEntry struct {
	ProgramMapID  uint16 // The packet identifier that contains the associated PMT
	ProgramNumber uint16 // Relates to the Table ID extension in the associated PMT. A value of 0 is reserved for a NIT packet identifier.
}

// patIterator iterates through PAT entries
// Entries have a fixed size
type patIterator struct {
	b    []byte
	next int
	end  int
}

func (s patSection) iterator() *patIterator {
	return &patIterator{
		b:    s.bytes(),
		next: patEntriesOffset,
		end:  s.entriesEnd(),
	}
}

func (i *patIterator) hasNext() bool {
	return i.next+patEntrySize <= i.end
}

func (i *patIterator) nextEntry() (e patEntry) {
	e = patEntry{
		ProgramMapID:  uint16(readUint(i.b, i.next*8+19, 13)),
		ProgramNumber: uint16(readUint(i.b, i.next*8, 16)),
	}
	i.next += patEntrySize
	return
}

// pmtSection represents a PMT section
type pmtSection struct {
	psiSection
}

// pmtEntry represents a PMT elementary stream
type pmtEntry struct {
	ElementaryPID uint16 // The packet identifier that contains the stream type data.
	ESInfoLength  int
	StreamType    StreamType // This defines the structure of the data contained within the elementary packet identifier.
}

// pmtIterator iterates through PMT entries
// Entries have a variable size: the position of an entry depends on the content of the previous one
type pmtIterator struct {
	b    []byte
	next int
	end  int
}

// pcrPID returns the PCR PID, only valid if the section is at least pmtSectionMinSize long
func (s pmtSection) pcrPID() uint16 { return uint16(readUint(s.bytes(), 67, 13)) }

// programInfoLength returns the program info length, only valid if the section is at least pmtSectionMinSize long
func (s pmtSection) programInfoLength() int { return int(readUint(s.bytes(), 84, 12)) }

func (s pmtSection) iterator() *pmtIterator {
	i := &pmtIterator{b: s.bytes()}
	if s.sectionSize() >= pmtSectionMinSize {
		i.next = pmtEntriesOffset + s.programInfoLength()
		i.end = s.entriesEnd()
	}
	return i
}

func (i *pmtIterator) hasNext() bool {
	return i.next+pmtEntryHeaderSize <= i.end
}

func (i *pmtIterator) nextEntry() (e pmtEntry) {
	e = pmtEntry{
		ElementaryPID: uint16(readUint(i.b, i.next*8+11, 13)),
		ESInfoLength:  int(readUint(i.b, i.next*8+28, 12)),
		StreamType:    StreamType(readUint(i.b, i.next*8, 8)),
	}
	i.next += pmtEntryHeaderSize + e.ESInfoLength
	return
}

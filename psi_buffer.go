package astitsfilt

// psiBuffer reassembles a PSI table spanning over several packets of the same PID
// https://en.wikipedia.org/wiki/Program-specific_information
type psiBuffer struct {
	complete         bool // the table has been reported, what follows is ignored until the next payload unit start
	continuityErrors uint64
	data             []byte
	nextCounter      int // -1 means we're waiting for a payload unit start to resynchronize
}

// newPSIBuffer creates a new PSI buffer
func newPSIBuffer() *psiBuffer {
	return &psiBuffer{nextCounter: -1}
}

// feed adds the packet payload to the buffer and returns true if all sections of the table have been received
func (b *psiBuffer) feed(p *Packet) bool {
	// Packets without payload don't carry anything for us
	if !p.HasPayload() {
		return false
	}

	// Check continuity
	counter := int(p.ContinuityCounter())
	if !p.PayloadUnitStartIndicator() {
		if counter != b.nextCounter {
			// A packet has been lost, the section in flight is abandoned until the next payload unit start
			if b.nextCounter >= 0 {
				b.continuityErrors++
			}
			b.complete = false
			b.nextCounter = -1
			b.data = b.data[:0]
			return false
		}
	} else {
		// A new table starts, whatever was there before is discarded
		b.complete = false
		b.data = b.data[:0]
	}
	b.nextCounter = (counter + 1) % 16

	// Table has already been reported
	if b.complete {
		return false
	}

	// Append payload
	b.data = append(b.data, p.Payload()...)

	// Loop through sections
	s := b.firstSection()
	for {
		if !s.isComplete() {
			return false
		}
		if s.isLastSection() {
			b.complete = true
			return true
		}
		s = s.nextSection()
	}
}

// pointerField returns the number of bytes preceding the first section
func (b *psiBuffer) pointerField() int { return int(b.data[0]) }

// firstSection returns the first section of the buffer
// If not even the pointer field has been received, an empty section is returned
func (b *psiBuffer) firstSection() psiSection {
	if l := len(b.data); l > 0 {
		if pos := b.pointerField() + 1; pos < l {
			return psiSection{
				b:      b.data,
				offset: pos,
				size:   l - pos,
			}
		}
	}
	return psiSection{b: b.data}
}

package astitsfilt

import (
	"github.com/pkg/errors"
)

// maxBitFieldWidth is the widest field we ever need to read (a 16 bits program number)
const maxBitFieldWidth = 16

// ErrBitFieldOutOfBounds is the value wrapped by the panic raised when a field read falls outside its buffer
var ErrBitFieldOutOfBounds = errors.New("astitsfilt: bit field out of bounds")

// byteMask returns a mask with bits ones starting at bit start, bit 0 being the most significant bit
func byteMask(start, bits int) byte {
	return byte(((0xff >> bits) ^ 0xff) >> start)
}

// readBit reads the bit located at bit position pos
func readBit(b []byte, pos int) bool {
	checkBitField(b, pos, 1)
	return b[pos/8]&byteMask(pos%8, 1) != 0
}

// readUint reads an unsigned integer of bits width starting at bit position pos
// Fields are stored most significant bit first
func readUint(b []byte, pos, bits int) (v uint32) {
	checkBitField(b, pos, bits)
	for end := pos + bits; pos < end; {
		// Number of bits we can read in the current byte
		start := pos % 8
		n := 8 - start
		if n > end-pos {
			n = end - pos
		}

		v = v<<uint(n) | uint32((b[pos/8]&byteMask(start, n))>>uint(8-start-n))
		pos += n
	}
	return
}

// checkBitField panics if the field can't be read from the buffer
// Offsets are constants most of the time, which means a failure here is a bug and not a runtime condition
func checkBitField(b []byte, pos, bits int) {
	if bits < 1 || bits > maxBitFieldWidth || pos < 0 {
		panic(errors.Wrapf(ErrBitFieldOutOfBounds, "astitsfilt: invalid field of %d bits at bit position %d", bits, pos))
	}
	if (pos+bits-1)/8-pos/8 >= 3 {
		panic(errors.Wrapf(ErrBitFieldOutOfBounds, "astitsfilt: field of %d bits at bit position %d spans more than 3 bytes", bits, pos))
	}
	if pos+bits > 8*len(b) {
		panic(errors.Wrapf(ErrBitFieldOutOfBounds, "astitsfilt: field of %d bits at bit position %d doesn't fit in %d bytes", bits, pos, len(b)))
	}
}

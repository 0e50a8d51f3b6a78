package astitsfilt

import (
	"time"
)

// ClockReference represents a clock reference
// Base is based on a 90 kHz clock and extension is based on a 27 MHz clock
type ClockReference struct {
	Base, Extension int64
}

// newClockReference builds a new clock reference
func newClockReference(base, extension int64) *ClockReference {
	return &ClockReference{
		Base:      base,
		Extension: extension,
	}
}

// parsePCR parses a Program Clock Reference
// Program clock reference, stored as 33 bits base, 6 bits reserved, 9 bits extension.
func parsePCR(bs []byte) *ClockReference {
	pcr := uint64(bs[0])<<40 | uint64(bs[1])<<32 | uint64(bs[2])<<24 | uint64(bs[3])<<16 | uint64(bs[4])<<8 | uint64(bs[5])
	return newClockReference(int64(pcr>>15), int64(pcr&0x1ff))
}

// Duration converts the clock reference into duration
func (p ClockReference) Duration() time.Duration {
	return time.Duration(p.Base*1e9/90000) + time.Duration(p.Extension*1e9/27000000)
}

// Time converts the clock reference into time
func (p ClockReference) Time() time.Time {
	return time.Unix(0, p.Duration().Nanoseconds())
}

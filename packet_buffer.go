package astitsfilt

import (
	"bufio"
	"io"
	"sync/atomic"

	"github.com/asticode/go-astikit"
	"github.com/pkg/errors"
)

const packetBufferSize = 64 * PacketSize

// packetBuffer cuts a reader into packets, resynchronizing on the sync byte whenever it's missing
type packetBuffer struct {
	l          astikit.CompleteLogger
	r          *bufio.Reader
	synced     bool
	syncLosses atomic.Uint64
}

// newPacketBuffer creates a new packet buffer
func newPacketBuffer(r io.Reader, l astikit.CompleteLogger) *packetBuffer {
	return &packetBuffer{
		l: l,
		r: bufio.NewReaderSize(r, packetBufferSize),
	}
}

// sync discards bytes until the next one is a sync byte
func (pb *packetBuffer) sync() (err error) {
	var skipped int
	for {
		var b byte
		if b, err = pb.r.ReadByte(); err != nil {
			if err == io.EOF {
				err = ErrNoMorePackets
			} else {
				err = errors.Wrap(err, "astitsfilt: reading byte failed")
			}
			return
		}
		if b == syncByte {
			break
		}
		skipped++
	}

	// Put the sync byte back
	if err = pb.r.UnreadByte(); err != nil {
		err = errors.Wrap(err, "astitsfilt: unreading byte failed")
		return
	}

	if skipped > 0 {
		pb.l.Debugf("astitsfilt: skipped %d bytes before sync byte", skipped)
	}
	pb.synced = true
	return
}

// next fetches the next packet from the buffer
func (pb *packetBuffer) next() (p *Packet, err error) {
	for {
		// Look for a sync byte
		if !pb.synced {
			if err = pb.sync(); err != nil {
				return
			}
		}

		// Peek
		var b []byte
		if b, err = pb.r.Peek(PacketSize); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = ErrNoMorePackets
			} else {
				err = errors.Wrapf(err, "astitsfilt: peeking %d bytes failed", PacketSize)
			}
			return
		}

		// Packet must start with a sync byte, otherwise we resync one byte further
		if b[0] != syncByte {
			pb.syncLosses.Add(1)
			pb.l.Errorf("astitsfilt: missing sync byte")
			pb.synced = false
			continue
		}

		// Build packet
		if p, err = NewPacket(b); err != nil {
			err = errors.Wrap(err, "astitsfilt: building packet failed")
			return
		}

		// Consume
		if _, err = pb.r.Discard(PacketSize); err != nil {
			err = errors.Wrapf(err, "astitsfilt: discarding %d bytes failed", PacketSize)
			return
		}
		return
	}
}

package astitsfilt

import (
	"context"
	"io"

	"github.com/asticode/go-astikit"
	"github.com/pkg/errors"
)

// Errors
var (
	ErrNoMorePackets = errors.New("astitsfilt: no more packets")
)

// Demuxer cuts a transport stream into packets
// https://en.wikipedia.org/wiki/MPEG_transport_stream
type Demuxer struct {
	ctx          context.Context
	l            astikit.CompleteLogger
	packetBuffer *packetBuffer
	r            io.Reader
}

// NewDemuxer creates a new demuxer based on a reader
func NewDemuxer(ctx context.Context, r io.Reader, opts ...func(*Demuxer)) (d *Demuxer) {
	// Init
	d = &Demuxer{
		ctx: ctx,
		l:   logger,
		r:   r,
	}

	// Apply options
	for _, opt := range opts {
		opt(d)
	}

	// Create packet buffer
	d.packetBuffer = newPacketBuffer(d.r, d.l)
	return
}

// DemuxerOptLogger returns the option to set the logger
func DemuxerOptLogger(l astikit.StdLogger) func(*Demuxer) {
	return func(d *Demuxer) {
		d.l = astikit.AdaptStdLogger(l)
	}
}

// NextPacket retrieves the next packet
// Bytes that can't be part of a packet are skipped, and ErrNoMorePackets is returned once the reader doesn't hold
// a whole packet anymore
func (dmx *Demuxer) NextPacket() (p *Packet, err error) {
	// Check ctx error
	if err = dmx.ctx.Err(); err != nil {
		return
	}

	// Fetch next packet from buffer
	if p, err = dmx.packetBuffer.next(); err != nil {
		if err != ErrNoMorePackets {
			err = errors.Wrap(err, "astitsfilt: fetching next packet from buffer failed")
		}
		return
	}
	return
}

// SyncLosses returns the number of times a packet didn't start with a sync byte
// It's safe to call it while packets are being fetched
func (dmx *Demuxer) SyncLosses() uint64 { return dmx.packetBuffer.syncLosses.Load() }

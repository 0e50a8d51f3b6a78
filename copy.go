package astitsfilt

import (
	"io"

	"github.com/pkg/errors"
)

// Copy writes the packets of the demuxer the filter keeps to w, untouched, until there are no more packets
func (f *Filter) Copy(dmx *Demuxer, w io.Writer) (err error) {
	var p *Packet
	for {
		// Get next packet
		if p, err = dmx.NextPacket(); err != nil {
			if err == ErrNoMorePackets {
				err = nil
				return
			}
			err = errors.Wrap(err, "astitsfilt: fetching next packet failed")
			return
		}

		// Filter
		if !f.Keep(p) {
			continue
		}

		// Write
		if _, err = w.Write(p.Bytes()); err != nil {
			err = errors.Wrap(err, "astitsfilt: writing packet failed")
			return
		}
	}
}

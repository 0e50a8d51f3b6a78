package astitsfilt

import (
	"sync/atomic"

	"github.com/asticode/go-astikit"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PIDs
const (
	PIDPAT uint16 = 0x0 // Program Association Table (PAT) contains a directory listing of all Program Map Tables.
)

// Decision represents what should be done with a packet
type Decision int

// Decisions
const (
	DecisionKeep Decision = iota
	DecisionDrop
)

// String implements the Stringer interface
func (d Decision) String() string {
	if d == DecisionDrop {
		return "drop"
	}
	return "keep"
}

// Filter decides which packets of a transport stream should be kept so that only one video stream and one audio
// stream of the first program remain
// It learns the PMT PID from the PAT and the PIDs to drop from the PMT, both reassembled from the stream itself
// Decide must be called with packets in stream order and from a single goroutine, only Stats can be called
// concurrently
type Filter struct {
	dropPIDs  map[uint16]bool
	hasPMTPID bool
	l         astikit.CompleteLogger
	pat       *psiBuffer
	pmt       *psiBuffer
	pmtPID    uint16
	trace     bool // packets are only traced when a logger has been provided

	// Stats
	continuityErrors atomic.Uint64
	droppedPackets   atomic.Uint64
	dropPIDsCount    atomic.Int64
	keptPackets      atomic.Uint64
	patDecodes       atomic.Uint64
	pmtDecodes       atomic.Uint64
	pmtPIDStat       atomic.Int64
}

// FilterStats represents filter stats
type FilterStats struct {
	ContinuityErrors uint64 `json:"continuity_errors"`
	DropPIDs         int    `json:"drop_pids"`
	DroppedPackets   uint64 `json:"dropped_packets"`
	KeptPackets      uint64 `json:"kept_packets"`
	PATDecodes       uint64 `json:"pat_decodes"`
	PMTDecodes       uint64 `json:"pmt_decodes"`
	PMTPID           int    `json:"pmt_pid"` // -1 until a PAT has been decoded
}

// NewFilter creates a new filter
func NewFilter(opts ...func(*Filter)) (f *Filter) {
	// Init
	f = &Filter{
		dropPIDs: make(map[uint16]bool),
		l:        logger,
		pat:      newPSIBuffer(),
		pmt:      newPSIBuffer(),
		trace:    hasLogger,
	}
	f.pmtPIDStat.Store(-1)

	// Apply options
	for _, opt := range opts {
		opt(f)
	}
	return
}

// FilterOptLogger returns the option to set the logger
func FilterOptLogger(l astikit.StdLogger) func(*Filter) {
	return func(f *Filter) {
		f.l = astikit.AdaptStdLogger(l)
		f.trace = l != nil
	}
}

// Keep returns true if the packet should be written to the output
func (f *Filter) Keep(p *Packet) bool { return f.Decide(p) == DecisionKeep }

// Decide updates the filter state with the packet and returns what should be done with it
func (f *Filter) Decide(p *Packet) (d Decision) {
	d = f.decide(p)
	if d == DecisionDrop {
		f.droppedPackets.Add(1)
	} else {
		f.keptPackets.Add(1)
	}
	if f.trace {
		f.l.Debugf("astitsfilt: pid %d | pusi: %v | af: %v | payload: %v | cc: %d --> %s", p.PID(), p.PayloadUnitStartIndicator(), p.HasAdaptationField(), p.HasPayload(), p.ContinuityCounter(), d)
	}
	return
}

func (f *Filter) decide(p *Packet) Decision {
	// Packets without payload are always kept
	if !p.HasPayload() {
		return DecisionKeep
	}

	// Switch on PID
	pid := p.PID()
	switch {
	case pid == PIDPAT:
		if f.feed(f.pat, p) {
			f.onPATComplete()
		}
		return DecisionKeep
	case f.hasPMTPID && pid == f.pmtPID:
		if f.feed(f.pmt, p) {
			f.onPMTComplete()
		}
		return DecisionKeep
	}

	if f.dropPIDs[pid] {
		return DecisionDrop
	}
	return DecisionKeep
}

func (f *Filter) feed(b *psiBuffer, p *Packet) (complete bool) {
	before := b.continuityErrors
	complete = b.feed(p)
	if n := b.continuityErrors - before; n > 0 {
		f.continuityErrors.Add(n)
		f.l.Debugf("astitsfilt: continuity error on pid %d, table is discarded until next payload unit start", p.PID())
	}
	return
}

func (f *Filter) onPATComplete() {
	f.patDecodes.Add(1)
	f.l.Debugf("astitsfilt: parsing PAT")

	// Only the first program is tracked
	for s := f.pat.firstSection(); ; s = s.nextSection() {
		for i := (patSection{s}).iterator(); i.hasNext(); {
			e := i.nextEntry()
			f.l.Debugf("astitsfilt: PAT: program number: %d | pid: %d", e.ProgramNumber, e.ProgramMapID)

			// Program number 0 is reserved to NIT
			if e.ProgramNumber != 0 {
				f.setPMTPID(e.ProgramMapID)
				return
			}
		}
		if s.isLastSection() {
			return
		}
	}
}

func (f *Filter) setPMTPID(pid uint16) {
	if f.hasPMTPID && f.pmtPID == pid {
		return
	}
	f.l.Debugf("astitsfilt: PMT pid is now %d", pid)
	f.hasPMTPID = true
	f.pmtPID = pid
	f.pmtPIDStat.Store(int64(pid))

	// Whatever was received on the previous PID is useless
	f.pmt = newPSIBuffer()
}

func (f *Filter) onPMTComplete() {
	f.pmtDecodes.Add(1)
	f.l.Debugf("astitsfilt: parsing PMT")

	// Drop set is replaced, not merged
	dropPIDs := make(map[uint16]bool)
	var hasAudio, hasVideo bool
	for s := f.pmt.firstSection(); ; s = s.nextSection() {
		for i := (pmtSection{s}).iterator(); i.hasNext(); {
			e := i.nextEntry()
			f.l.Debugf("astitsfilt: PMT: stream type: %s | pid: %d", e.StreamType, e.ElementaryPID)

			switch {
			case e.StreamType == StreamTypeMPEG2Video && !hasVideo:
				hasVideo = true
			case e.StreamType == StreamTypeADTS && !hasAudio:
				hasAudio = true
			default:
				dropPIDs[e.ElementaryPID] = true
			}
		}
		if s.isLastSection() {
			break
		}
	}
	f.dropPIDs = dropPIDs
	f.dropPIDsCount.Store(int64(len(dropPIDs)))
	f.l.Debugf("astitsfilt: dropped pids are now %v", f.DropPIDs())
}

// PMTPID returns the PID of the tracked PMT, if any
func (f *Filter) PMTPID() (uint16, bool) { return f.pmtPID, f.hasPMTPID }

// DropPIDs returns the sorted PIDs whose packets are dropped
func (f *Filter) DropPIDs() (pids []uint16) {
	pids = maps.Keys(f.dropPIDs)
	slices.Sort(pids)
	return
}

// Stats returns the filter stats
// It's safe to call it while packets are being processed
func (f *Filter) Stats() FilterStats {
	return FilterStats{
		ContinuityErrors: f.continuityErrors.Load(),
		DropPIDs:         int(f.dropPIDsCount.Load()),
		DroppedPackets:   f.droppedPackets.Load(),
		KeptPackets:      f.keptPackets.Load(),
		PATDecodes:       f.patDecodes.Load(),
		PMTDecodes:       f.pmtDecodes.Load(),
		PMTPID:           int(f.pmtPIDStat.Load()),
	}
}

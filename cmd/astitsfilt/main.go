package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/asticode/go-astikit"
	"github.com/asticode/go-astitsfilt"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Flags
var (
	ctx, cancel     = context.WithCancel(context.Background())
	configPath      = flag.String("c", "", "the TOML config path")
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	format          = flag.String("f", "", "the format")
	inputPath       = flag.String("i", "", "the input path, - or empty for stdin, udp://host:port for multicast")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	metricsAddr     = flag.String("metrics", "", "the address prometheus metrics are served on, disabled if empty")
	outputPath      = flag.String("o", "", "the output path, - or empty for stdout")
	verbose         = flag.Bool("v", false, "if yes, each packet decision is logged")
)

// Commands
const (
	cmdFilter  = "filter"
	cmdPackets = "packets"
	cmdPSI     = "psi"
)

func main() {
	// Init
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <filter|packets|psi> [input] [output]:\n", os.Args[0])
		flag.PrintDefaults()
	}
	cmd := astikit.FlagCmd()
	flag.Parse()

	// First positional argument may be the input
	args := flag.Args()
	switch cmd {
	case "", cmdFilter, cmdPackets, cmdPSI:
	default:
		args = append([]string{cmd}, args...)
		cmd = cmdFilter
	}

	// Handle signals
	handleSignals()

	// Start profiling
	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	// Build config
	c, err := newConfig(*configPath)
	if err != nil {
		log.Fatal(fmt.Errorf("main: building config failed: %w", err))
	}
	c.applyFlags(flag.CommandLine, args)

	// Build the reader
	var r io.Reader
	if r, err = buildReader(c.Input); err != nil {
		log.Fatal(fmt.Errorf("main: parsing input failed: %w", err))
	}

	// Make sure the reader is closed properly
	if cl, ok := r.(io.Closer); ok {
		defer cl.Close()
	}

	// Create the demuxer
	dmx := astitsfilt.NewDemuxer(ctx, r, astitsfilt.DemuxerOptLogger(log.Default()))

	// Create the filter
	var fs []func(*astitsfilt.Filter)
	if c.Verbose {
		fs = append(fs, astitsfilt.FilterOptLogger(log.Default()))
	}
	f := astitsfilt.NewFilter(fs...)

	// Switch on command
	switch cmd {
	case cmdPackets:
		// Fetch packets
		if err = packets(dmx); err != nil {
			log.Fatal(fmt.Errorf("main: fetching packets failed: %w", err))
		}
	case cmdPSI:
		// Go through the stream
		if err = f.Copy(dmx, io.Discard); err != nil {
			log.Fatal(fmt.Errorf("main: going through the stream failed: %w", err))
		}

		// Print
		if err = printPSI(f); err != nil {
			log.Fatal(fmt.Errorf("main: printing psi failed: %w", err))
		}
	default:
		// Filter
		if err = filter(c, f, dmx, r); err != nil {
			log.Fatal(fmt.Errorf("main: filtering failed: %w", err))
		}
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG && s != syscall.SIGPIPE {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

func buildReader(inputPath string) (r io.Reader, err error) {
	// Stdin
	if inputPath == "" || inputPath == "-" {
		r = os.Stdin
		return
	}

	// Parse input
	var u *url.URL
	if u, err = url.Parse(inputPath); err != nil {
		err = fmt.Errorf("main: parsing input path failed: %w", err)
		return
	}

	// Switch on scheme
	switch u.Scheme {
	case "udp":
		// Resolve addr
		var addr *net.UDPAddr
		if addr, err = net.ResolveUDPAddr("udp", u.Host); err != nil {
			err = fmt.Errorf("main: resolving udp addr %s failed: %w", u.Host, err)
			return
		}

		// Listen to multicast UDP
		var c *net.UDPConn
		if c, err = net.ListenMulticastUDP("udp", nil, addr); err != nil {
			err = fmt.Errorf("main: listening on multicast udp addr %s failed: %w", u.Host, err)
			return
		}
		c.SetReadBuffer(4096)
		r = c
	default:
		// Open file
		var f *os.File
		if f, err = os.Open(inputPath); err != nil {
			err = fmt.Errorf("main: opening %s failed: %w", inputPath, err)
			return
		}
		r = f
	}
	return
}

func buildWriter(outputPath string) (w io.WriteCloser, err error) {
	// Stdout
	if outputPath == "" || outputPath == "-" {
		w = os.Stdout
		return
	}

	// Create file
	var f *os.File
	if f, err = os.Create(outputPath); err != nil {
		err = fmt.Errorf("main: creating %s failed: %w", outputPath, err)
		return
	}
	w = f
	return
}

func filter(c Config, f *astitsfilt.Filter, dmx *astitsfilt.Demuxer, r io.Reader) (err error) {
	// Build the writer
	var w io.WriteCloser
	if w, err = buildWriter(c.Output); err != nil {
		err = fmt.Errorf("main: building writer failed: %w", err)
		return
	}
	defer w.Close()

	// Everything stops once the stream has been filtered
	fctx, fcancel := context.WithCancel(ctx)
	defer fcancel()
	g, gctx := errgroup.WithContext(fctx)

	// Serve metrics
	if c.Metrics.Address != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(astitsfilt.NewExporter(f, dmx))
		mux := http.NewServeMux()
		mux.Handle(c.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: c.Metrics.Address, Handler: mux}

		g.Go(func() error {
			log.Printf("main: serving metrics on %s%s\n", c.Metrics.Address, c.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("main: serving metrics failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	// Reads may block forever, closing the reader unblocks them
	var copied atomic.Bool
	g.Go(func() error {
		<-gctx.Done()
		if !copied.Load() {
			if cl, ok := r.(io.Closer); ok {
				cl.Close()
			}
		}
		return nil
	})

	// Filter
	g.Go(func() (err error) {
		defer fcancel()
		bw := bufio.NewWriterSize(w, 64*astitsfilt.PacketSize)
		err = f.Copy(dmx, bw)
		copied.Store(true)
		if err != nil {
			if gctx.Err() == nil {
				return fmt.Errorf("main: copying failed: %w", err)
			}
			log.Println("main: filtering has been interrupted")
		}
		if err = bw.Flush(); err != nil {
			return fmt.Errorf("main: flushing failed: %w", err)
		}
		s := f.Stats()
		log.Printf("main: %d packets kept, %d packets dropped, %d sync losses\n", s.KeptPackets, s.DroppedPackets, dmx.SyncLosses())
		return nil
	})
	return g.Wait()
}

func packets(dmx *astitsfilt.Demuxer) (err error) {
	// Loop through packets
	var p *astitsfilt.Packet
	log.Println("Fetching packets...")
	for {
		// Get next packet
		if p, err = dmx.NextPacket(); err != nil {
			if err == astitsfilt.ErrNoMorePackets {
				break
			}
			err = fmt.Errorf("main: getting next packet failed: %w", err)
			return
		}

		// Log packet
		h := p.Header()
		log.Printf("PKT: %d\n", h.PID)
		log.Printf("  Continuity Counter: %v\n", h.ContinuityCounter)
		log.Printf("  Payload Unit Start Indicator: %v\n", h.PayloadUnitStartIndicator)
		log.Printf("  Has Payload: %v\n", h.HasPayload)
		log.Printf("  Has Adaptation Field: %v\n", h.HasAdaptationField)
		log.Printf("  Transport Error Indicator: %v\n", h.TransportErrorIndicator)
		log.Printf("  Transport Priority: %v\n", h.TransportPriority)
		log.Printf("  Transport Scrambling Control: %v\n", h.TransportScramblingControl)
		if a := p.AdaptationField(); a != nil {
			log.Printf("  Adaptation Field: %+v\n", a)
			if a.PCR != nil {
				log.Printf("  PCR: %s\n", a.PCR.Duration())
			}
		}
	}
	return nil
}

// PSI represents what has been learned from the PSI tables
type PSI struct {
	DropPIDs []uint16               `json:"drop_pids"`
	PMTPID   *uint16                `json:"pmt_pid,omitempty"`
	Stats    astitsfilt.FilterStats `json:"stats"`
}

func newPSI(f *astitsfilt.Filter) (p PSI) {
	p = PSI{
		DropPIDs: f.DropPIDs(),
		Stats:    f.Stats(),
	}
	if pid, ok := f.PMTPID(); ok {
		p.PMTPID = &pid
	}
	return
}

func printPSI(f *astitsfilt.Filter) (err error) {
	p := newPSI(f)
	switch *format {
	case "json":
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")
		if err = e.Encode(p); err != nil {
			err = fmt.Errorf("main: json encoding to stdout failed: %w", err)
			return
		}
	default:
		if p.PMTPID == nil {
			fmt.Println("PMT PID is unknown")
		} else {
			fmt.Printf("PMT PID is %d\n", *p.PMTPID)
		}
		fmt.Printf("Dropped PIDs are %v\n", p.DropPIDs)
		fmt.Printf("Stats are %+v\n", p.Stats)
	}
	return
}

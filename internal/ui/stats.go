package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/guptarohit/asciigraph"
)

// ScanStats accumulates timings (cache reads during an eixgo-update run,
// per-package decode+match under eixgo --stats), recorded in a high dynamic
// range histogram so both a single slow item and the bulk distribution are
// visible afterward.
type ScanStats struct {
	hist   *hdrhistogram.Histogram
	series []float64
}

// NewScanStats builds a histogram covering 1 microsecond to 10 seconds per
// directory scan, with 3 significant figures of precision (the same
// precision HdrHistogram's own examples default to).
func NewScanStats() *ScanStats {
	return &ScanStats{hist: hdrhistogram.New(1, 10_000_000, 3)}
}

// Record adds one directory's scan duration.
func (s *ScanStats) Record(d time.Duration) {
	micros := d.Microseconds()
	if micros < 1 {
		micros = 1
	}
	s.hist.RecordValue(micros)
	s.series = append(s.series, float64(micros))
}

// PrintReport writes a latency summary (min/mean/p50/p90/p99/max) followed
// by an ASCII sparkline of the scan-time series, to w.
func (s *ScanStats) PrintReport(w io.Writer) {
	fmt.Fprintf(w, "scan latency (us): min=%d mean=%.0f p50=%d p90=%d p99=%d max=%d\n",
		s.hist.Min(), s.hist.Mean(), s.hist.ValueAtQuantile(50), s.hist.ValueAtQuantile(90),
		s.hist.ValueAtQuantile(99), s.hist.Max())

	if len(s.series) < 2 {
		return
	}
	plot := asciigraph.Plot(s.series, asciigraph.Height(8), asciigraph.Width(60))
	fmt.Fprintln(w, plot)
}

// PrintFuzzySparkline plots a terminal sparkline of a fuzzy query's edit
// distance distribution across matches, for --stats.
func PrintFuzzySparkline(w io.Writer, distances []float64) {
	if len(distances) < 2 {
		return
	}
	fmt.Fprintln(w, "fuzzy distance across matches:")
	plot := asciigraph.Plot(distances, asciigraph.Height(8), asciigraph.Width(60))
	fmt.Fprintln(w, plot)
}

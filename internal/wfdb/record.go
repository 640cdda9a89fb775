package wfdb

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Record is a loaded record in physical units, one column per signal.
type Record struct {
	Header *Header
	Signal *mat.Dense
}

// Leads returns the signal descriptions in column order.
func (r *Record) Leads() []string {
	names := make([]string, len(r.Header.Signals))
	for i, s := range r.Header.Signals {
		names[i] = s.Description
	}
	return names
}

// HeaderPath maps a record path, with or without a .hea or .dat extension, to
// its header file.
func HeaderPath(path string) string {
	return RecordBase(path) + ".hea"
}

// RecordBase strips a .hea or .dat extension from path.
func RecordBase(path string) string {
	for _, ext := range []string{".hea", ".dat"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

type fileGroup struct {
	name    string
	signals []int
}

// ReadRecord loads the record at path as a (samples, signals) matrix.
func ReadRecord(path string) (*Record, error) {
	h, err := ReadHeader(HeaderPath(path))
	if err != nil {
		return nil, err
	}
	if h.NumSignals == 0 {
		return nil, fmt.Errorf("record %s has no signals", h.Record)
	}

	dir := filepath.Dir(path)
	groups := groupByFile(h.Signals)

	digital := make([][]int, len(groups))
	frames := -1
	for gi, g := range groups {
		values, err := readGroup(dir, g, h.Signals)
		if err != nil {
			return nil, err
		}
		digital[gi] = values
		n := len(values) / len(g.signals)
		if frames < 0 || n < frames {
			frames = n
		}
	}

	nsamp := h.NumSamples
	if nsamp == 0 {
		nsamp = frames
	}
	if frames < nsamp {
		return nil, fmt.Errorf("record %s: signal data holds %d samples, header declares %d", h.Record, frames, nsamp)
	}
	if nsamp == 0 {
		return nil, fmt.Errorf("record %s has no samples", h.Record)
	}

	m := mat.NewDense(nsamp, h.NumSignals, nil)
	for gi, g := range groups {
		values := digital[gi]
		width := len(g.signals)
		for j, sig := range g.signals {
			spec := h.Signals[sig]
			invalid := invalidSample(spec.Format)
			for t := 0; t < nsamp; t++ {
				idx := (t+spec.Skew)*width + j
				if idx < 0 || idx >= len(values) || values[idx] == invalid {
					m.Set(t, sig, math.NaN())
					continue
				}
				m.Set(t, sig, float64(values[idx]-spec.Baseline)/spec.Gain)
			}
		}
	}

	return &Record{Header: h, Signal: m}, nil
}

func groupByFile(signals []SignalSpec) []fileGroup {
	var groups []fileGroup
	pos := map[string]int{}
	for i, s := range signals {
		gi, ok := pos[s.FileName]
		if !ok {
			gi = len(groups)
			pos[s.FileName] = gi
			groups = append(groups, fileGroup{name: s.FileName})
		}
		groups[gi].signals = append(groups[gi].signals, i)
	}
	return groups
}

func readGroup(dir string, g fileGroup, specs []SignalSpec) ([]int, error) {
	first := specs[g.signals[0]]
	if g.name == "~" {
		return nil, fmt.Errorf("signals without a data file are not supported")
	}
	for _, i := range g.signals {
		s := specs[i]
		if s.Format != first.Format {
			return nil, fmt.Errorf("%s: mixed storage formats %d and %d", g.name, first.Format, s.Format)
		}
		if s.SamplesPerFrame != 1 {
			return nil, fmt.Errorf("%s: multi-frequency signals are not supported", g.name)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, g.name))
	if err != nil {
		return nil, err
	}
	if first.ByteOffset > int64(len(raw)) {
		return nil, fmt.Errorf("%s: byte offset %d beyond end of file", g.name, first.ByteOffset)
	}
	values, err := decode(first.Format, raw[first.ByteOffset:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}
	return values, nil
}

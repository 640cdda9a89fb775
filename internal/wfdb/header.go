package wfdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	defaultFrequency = 250
	defaultGain      = 200
)

// Header is a parsed record header.
type Header struct {
	Record     string       `json:"record"`
	NumSignals int          `json:"num_signals"`
	Frequency  float64      `json:"frequency"`
	NumSamples int          `json:"num_samples"`
	BaseTime   string       `json:"base_time,omitempty"`
	BaseDate   string       `json:"base_date,omitempty"`
	Signals    []SignalSpec `json:"signals"`
	Comments   []string     `json:"comments,omitempty"`
}

// SignalSpec is one signal line of a header.
type SignalSpec struct {
	FileName        string  `json:"file_name"`
	Format          int     `json:"format"`
	SamplesPerFrame int     `json:"samples_per_frame"`
	Skew            int     `json:"skew"`
	ByteOffset      int64   `json:"byte_offset"`
	Gain            float64 `json:"gain"`
	Baseline        int     `json:"baseline"`
	Units           string  `json:"units"`
	ADCResolution   int     `json:"adc_resolution"`
	ADCZero         int     `json:"adc_zero"`
	InitialValue    int     `json:"initial_value"`
	Checksum        int     `json:"checksum"`
	BlockSize       int     `json:"block_size"`
	Description     string  `json:"description"`
}

// ReadHeader parses the header file at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// ParseHeader parses a header from r.
func ParseHeader(r io.Reader) (*Header, error) {
	sc := bufio.NewScanner(r)
	h := &Header{}
	gotRecord := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		if !gotRecord {
			if err := parseRecordLine(line, h); err != nil {
				return nil, err
			}
			gotRecord = true
			continue
		}

		if len(h.Signals) == h.NumSignals {
			// trailing info lines are ignored
			continue
		}
		spec, err := parseSignalLine(line)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", len(h.Signals), err)
		}
		h.Signals = append(h.Signals, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !gotRecord {
		return nil, fmt.Errorf("missing record line")
	}
	if len(h.Signals) != h.NumSignals {
		return nil, fmt.Errorf("header declares %d signals, found %d", h.NumSignals, len(h.Signals))
	}
	return h, nil
}

func parseRecordLine(line string, h *Header) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed record line %q", line)
	}

	name := fields[0]
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return fmt.Errorf("multi-segment record %q is not supported", name)
	}
	h.Record = name

	nsig, err := strconv.Atoi(fields[1])
	if err != nil || nsig < 0 {
		return fmt.Errorf("invalid signal count %q", fields[1])
	}
	h.NumSignals = nsig

	h.Frequency = defaultFrequency
	if len(fields) > 2 {
		fs := fields[2]
		if i := strings.IndexAny(fs, "/("); i >= 0 {
			fs = fs[:i]
		}
		f, err := strconv.ParseFloat(fs, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid sampling frequency %q", fields[2])
		}
		h.Frequency = f
	}
	if len(fields) > 3 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid sample count %q", fields[3])
		}
		h.NumSamples = n
	}
	if len(fields) > 4 {
		h.BaseTime = fields[4]
	}
	if len(fields) > 5 {
		h.BaseDate = fields[5]
	}
	return nil
}

func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("malformed signal line %q", line)
	}

	s := SignalSpec{FileName: fields[0], SamplesPerFrame: 1}
	if err := parseFormat(fields[1], &s); err != nil {
		return SignalSpec{}, err
	}

	s.Gain = defaultGain
	baselineSet := false
	if len(fields) > 2 {
		var err error
		baselineSet, err = parseGain(fields[2], &s)
		if err != nil {
			return SignalSpec{}, err
		}
	}

	ints := []*int{&s.ADCResolution, &s.ADCZero, &s.InitialValue, &s.Checksum, &s.BlockSize}
	for i, dst := range ints {
		idx := 3 + i
		if idx >= len(fields) {
			break
		}
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return SignalSpec{}, fmt.Errorf("invalid integer field %q", fields[idx])
		}
		*dst = v
	}
	if len(fields) > 8 {
		s.Description = strings.Join(fields[8:], " ")
	}

	if !baselineSet {
		s.Baseline = s.ADCZero
	}
	if s.Units == "" {
		s.Units = "mV"
	}
	return s, nil
}

// parseFormat reads "format[xsamp][:skew][+offset]".
func parseFormat(spec string, s *SignalSpec) error {
	rest := spec
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		off, err := strconv.ParseInt(rest[i+1:], 10, 64)
		if err != nil || off < 0 {
			return fmt.Errorf("invalid byte offset in %q", spec)
		}
		s.ByteOffset = off
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		skew, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return fmt.Errorf("invalid skew in %q", spec)
		}
		s.Skew = skew
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, 'x'); i >= 0 {
		spf, err := strconv.Atoi(rest[i+1:])
		if err != nil || spf < 1 {
			return fmt.Errorf("invalid samples per frame in %q", spec)
		}
		s.SamplesPerFrame = spf
		rest = rest[:i]
	}
	format, err := strconv.Atoi(rest)
	if err != nil {
		return fmt.Errorf("invalid format %q", spec)
	}
	s.Format = format
	return nil
}

// parseGain reads "gain[(baseline)][/units]" and reports whether a baseline
// was given.
func parseGain(spec string, s *SignalSpec) (bool, error) {
	rest := spec
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		s.Units = rest[i+1:]
		rest = rest[:i]
	}
	baselineSet := false
	if i := strings.IndexByte(rest, '('); i >= 0 {
		j := strings.IndexByte(rest, ')')
		if j < i {
			return false, fmt.Errorf("invalid baseline in %q", spec)
		}
		b, err := strconv.Atoi(rest[i+1 : j])
		if err != nil {
			return false, fmt.Errorf("invalid baseline in %q", spec)
		}
		s.Baseline = b
		baselineSet = true
		rest = rest[:i]
	}
	g, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return false, fmt.Errorf("invalid gain %q", spec)
	}
	if g != 0 {
		s.Gain = g
	}
	return baselineSet, nil
}

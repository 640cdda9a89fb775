package testutil

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WFDBRecord describes a format 16 record written by WriteWFDB.
type WFDBRecord struct {
	// Name is the record path relative to the dataset root, without
	// extension, e.g. "records500/00000/00001_hr".
	Name         string
	Frequency    int
	Gain         float64
	Baseline     int
	Leads        [][]int16
	Descriptions []string
}

// StandardLeads are the twelve lead names of a PTB-XL record.
var StandardLeads = []string{"I", "II", "III", "AVR", "AVL", "AVF", "V1", "V2", "V3", "V4", "V5", "V6"}

// WriteWFDB writes a header and an interleaved format 16 data file under root
// and returns the header path.
func WriteWFDB(t testing.TB, root string, rec WFDBRecord) string {
	t.Helper()

	if rec.Frequency == 0 {
		rec.Frequency = 500
	}
	if rec.Gain == 0 {
		rec.Gain = 1000
	}
	samples := 0
	if len(rec.Leads) > 0 {
		samples = len(rec.Leads[0])
	}

	base := filepath.Join(root, filepath.FromSlash(rec.Name))
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		t.Fatalf("create record dir: %v", err)
	}
	name := filepath.Base(base)

	var hea strings.Builder
	fmt.Fprintf(&hea, "%s %d %d %d\n", name, len(rec.Leads), rec.Frequency, samples)
	for i := range rec.Leads {
		desc := fmt.Sprintf("L%d", i)
		if i < len(rec.Descriptions) {
			desc = rec.Descriptions[i]
		} else if i < len(StandardLeads) {
			desc = StandardLeads[i]
		}
		fmt.Fprintf(&hea, "%s.dat 16 %g(%d)/mV 16 0 0 0 0 %s\n", name, rec.Gain, rec.Baseline, desc)
	}
	if err := os.WriteFile(base+".hea", []byte(hea.String()), 0644); err != nil {
		t.Fatalf("write header: %v", err)
	}

	data := make([]byte, 0, 2*samples*len(rec.Leads))
	for s := 0; s < samples; s++ {
		for _, lead := range rec.Leads {
			data = binary.LittleEndian.AppendUint16(data, uint16(lead[s]))
		}
	}
	if err := os.WriteFile(base+".dat", data, 0644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	return base + ".hea"
}

// RampLeads builds leads whose samples encode their position: lead l,
// sample s holds l*100 + s.
func RampLeads(leads, samples int) [][]int16 {
	out := make([][]int16, leads)
	for l := range out {
		out[l] = make([]int16, samples)
		for s := range out[l] {
			out[l][s] = int16(l*100 + s)
		}
	}
	return out
}

// WriteManifest writes a CSV manifest with the given header and rows.
func WriteManifest(t testing.TB, path string, header []string, rows [][]string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create manifest dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create manifest: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write manifest header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write manifest rows: %v", err)
	}
	return path
}

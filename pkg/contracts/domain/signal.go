package domain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RawSignal is a lead-by-sample ECG array stored row-major, lead 0 first.
// Shape has one dimension (a single lead given as a bare sample vector) or two
// dimensions (leads, samples).
type RawSignal struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewRawSignal wraps a row-major (leads, samples) buffer.
func NewRawSignal(leads, samples int, data []float64) (RawSignal, error) {
	if leads < 0 || samples < 0 {
		return RawSignal{}, fmt.Errorf("negative dimensions (%d, %d)", leads, samples)
	}
	if len(data) != leads*samples {
		return RawSignal{}, fmt.Errorf("data length %d does not match shape (%d, %d)", len(data), leads, samples)
	}
	return RawSignal{Shape: []int{leads, samples}, Data: data}, nil
}

// FromSamples builds a one-dimensional signal from a bare sample vector.
func FromSamples(samples []float64) RawSignal {
	return RawSignal{Shape: []int{len(samples)}, Data: samples}
}

// FromLeads builds a (leads, samples) signal from per-lead slices. All leads
// must have the same length.
func FromLeads(leads [][]float64) (RawSignal, error) {
	if len(leads) == 0 {
		return RawSignal{Shape: []int{0, 0}}, nil
	}
	samples := len(leads[0])
	data := make([]float64, 0, len(leads)*samples)
	for i, lead := range leads {
		if len(lead) != samples {
			return RawSignal{}, fmt.Errorf("lead %d has %d samples, expected %d", i, len(lead), samples)
		}
		data = append(data, lead...)
	}
	return RawSignal{Shape: []int{len(leads), samples}, Data: data}, nil
}

// FromDense copies a (leads, samples) matrix into a RawSignal.
func FromDense(m mat.Matrix) RawSignal {
	r, c := m.Dims()
	dense := mat.DenseCopyOf(m)
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, dense.RawRowView(i)...)
	}
	return RawSignal{Shape: []int{r, c}, Data: data}
}

// Rank is the number of dimensions.
func (s RawSignal) Rank() int { return len(s.Shape) }

// Leads is the number of leads; a one-dimensional signal has one.
func (s RawSignal) Leads() int {
	switch len(s.Shape) {
	case 1:
		return 1
	case 2:
		return s.Shape[0]
	default:
		return 0
	}
}

// Samples is the number of samples per lead.
func (s RawSignal) Samples() int {
	if len(s.Shape) == 0 {
		return 0
	}
	return s.Shape[len(s.Shape)-1]
}

// Lead returns a view of lead i's samples.
func (s RawSignal) Lead(i int) []float64 {
	n := s.Samples()
	return s.Data[i*n : (i+1)*n]
}

// Dense returns the signal as a (leads, samples) matrix sharing the buffer.
func (s RawSignal) Dense() *mat.Dense {
	return mat.NewDense(s.Leads(), s.Samples(), s.Data)
}

// NormalizedSequence is a lead-major flattened, fixed-length sequence ready for
// a model. It is always consumed with a leading batch dimension of one, see
// Batch.
type NormalizedSequence struct {
	Leads          int       `json:"leads"`
	SamplesPerLead int       `json:"samples_per_lead"`
	Values         []float32 `json:"values"`
}

// Len is the flattened sequence length.
func (n NormalizedSequence) Len() int { return len(n.Values) }

// Batch wraps the sequence as a (1, Len) tensor.
func (n NormalizedSequence) Batch() Tensor {
	return Tensor{Shape: []int{1, len(n.Values)}, Data: n.Values}
}

// Device names where a tensor lives.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Tensor is a dense float32 array with an explicit shape.
type Tensor struct {
	Shape  []int     `json:"shape"`
	Data   []float32 `json:"data"`
	Device Device    `json:"device,omitempty"`
}

// Rank is the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// NumElements is the product of the shape.
func (t Tensor) NumElements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// To returns a copy of t placed on device d. Data is shared.
func (t Tensor) To(d Device) Tensor {
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	return Tensor{Shape: shape, Data: t.Data, Device: d}
}

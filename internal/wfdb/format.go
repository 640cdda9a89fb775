package wfdb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// invalidSample returns the sentinel a format uses for missing samples.
func invalidSample(format int) int {
	switch format {
	case 80:
		return -1 << 7
	case 212:
		return -1 << 11
	case 16, 61:
		return -1 << 15
	case 24:
		return -1 << 23
	case 32:
		return math.MinInt32
	default:
		return math.MinInt
	}
}

// decode unpacks a signal file body into digital samples in file order.
func decode(format int, b []byte) ([]int, error) {
	switch format {
	case 16:
		out := make([]int, len(b)/2)
		for i := range out {
			out[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
		}
		return out, nil
	case 61:
		out := make([]int, len(b)/2)
		for i := range out {
			out[i] = int(int16(binary.BigEndian.Uint16(b[2*i:])))
		}
		return out, nil
	case 80:
		out := make([]int, len(b))
		for i, v := range b {
			out[i] = int(v) - 128
		}
		return out, nil
	case 212:
		return decode212(b), nil
	case 24:
		out := make([]int, len(b)/3)
		for i := range out {
			v := int(b[3*i]) | int(b[3*i+1])<<8 | int(b[3*i+2])<<16
			out[i] = signExtend(v, 24)
		}
		return out, nil
	case 32:
		out := make([]int, len(b)/4)
		for i := range out {
			out[i] = int(int32(binary.LittleEndian.Uint32(b[4*i:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported storage format %d", format)
	}
}

// decode212 unpacks pairs of 12-bit two's complement samples from 3 bytes.
func decode212(b []byte) []int {
	out := make([]int, 0, len(b)*2/3+1)
	for i := 0; i+1 < len(b); i += 3 {
		out = append(out, signExtend(int(b[i])|int(b[i+1]&0x0f)<<8, 12))
		if i+2 < len(b) {
			out = append(out, signExtend(int(b[i+2])|int(b[i+1]&0xf0)<<4, 12))
		}
	}
	return out
}

func signExtend(v, bits int) int {
	shift := 64 - bits
	return int(int64(v) << shift >> shift)
}

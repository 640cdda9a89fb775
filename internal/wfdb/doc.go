// Package wfdb reads PhysioNet WFDB records: a text header (.hea) describing
// one or more signals, and binary signal files holding interleaved samples.
//
// Supported storage formats are 16, 61, 80, 212, 24 and 32, single-segment
// records only. Samples are converted to physical units as
// (digital - baseline) / gain; invalid-sample sentinels become NaN.
//
// ReadRecord returns the matrix in the on-disk orientation (samples, signals).
// Loader.LoadRecord transposes it to the (leads, samples) orientation used by
// the rest of the module.
package wfdb

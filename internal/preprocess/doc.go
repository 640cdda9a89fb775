// Package preprocess turns raw multi-lead ECG arrays into the fixed-length,
// lead-major flattened sequences consumed by the sequence model.
//
// The transform runs in a fixed order: shape coercion, length fitting
// (right zero-pad or leading-edge truncate), stride downsampling, lead-major
// flattening. Batch wrapping is left to domain.NormalizedSequence.Batch.
package preprocess

// Package converter drives batch dataset conversion: for every manifest row it
// loads the waveform, derives the output filename and writes one array file.
//
// Row failures never abort a run. Each row produces a domain.RowResult and the
// results are collected, in manifest order, into a domain.ConversionReport.
// Only an unreadable manifest, an unusable output directory or a cancelled
// context stops a run early.
package converter

// Package exporter persists conversion outputs: one NumPy .npy file per
// converted record, and the run report as JSON, CSV and optionally XLSX.
//
// Every file is written through files.Manager.WriteFileAtomic, so rerunning a
// conversion replaces earlier outputs in place.
//
// Example usage:
//
//	fm := files.NewManager(paths, logger)
//	npy := exporter.NewNPYWriter(fm, logger)
//	rec, err := npy.WriteSignal("processed/HR00001.hea.npy", signal)
//
//	reports := exporter.NewReportExporter(fm, logger)
//	written, err := reports.WriteAll(report, true)
package exporter

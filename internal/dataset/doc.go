// Package dataset reads recording manifests and derives the file names under
// which converted records are stored.
//
// Manifests are delimited text (CSV, or TSV by extension) or XLSX workbooks
// whose first row is a header. Rows are returned in file order.
package dataset

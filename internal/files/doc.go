// Package files resolves locations inside the dataset layout and writes
// output files atomically, so a converted record or report is either the
// previous version or the complete new one.
package files

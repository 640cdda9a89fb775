// Package fetch acquires the dataset: it downloads the archive with progress
// reporting, optionally resolves the newest archive link from the project
// page, extracts the zip and locates the directory holding the manifest.
package fetch

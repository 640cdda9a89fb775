// Package shared holds helpers used by more than one package. It carries no
// domain logic of its own.
//
// The testutil subpackage provides the slog capture handler used to assert on
// structured log output and fixtures that build WFDB records and PTB-XL style
// manifests on disk.
package shared

package dataset

import (
	"path"
	"strings"
)

// NamingRule rewrites a manifest path field into an output file name:
// Marker + basename with SuffixToken replaced by ExtensionToken.
type NamingRule struct {
	Marker         string `json:"marker" yaml:"marker" validate:"required"`
	SuffixToken    string `json:"suffix_token" yaml:"suffix_token" validate:"required"`
	ExtensionToken string `json:"extension_token" yaml:"extension_token" validate:"required"`
}

// Resolution presets.
const (
	ResolutionHigh = "hr"
	ResolutionLow  = "lr"
)

// DefaultNamingRule is the 500 Hz rule: records/00001_hr -> HR00001.hea.npy.
func DefaultNamingRule() NamingRule {
	return NamingRule{Marker: "HR", SuffixToken: "_hr", ExtensionToken: ".hea.npy"}
}

// Preset returns the path column and naming rule for a resolution, "hr" for
// the 500 Hz records or "lr" for the 100 Hz ones.
func Preset(resolution string) (string, NamingRule, bool) {
	switch strings.ToLower(resolution) {
	case ResolutionHigh, "":
		return "filename_hr", DefaultNamingRule(), true
	case ResolutionLow:
		return "filename_lr", NamingRule{Marker: "LR", SuffixToken: "_lr", ExtensionToken: ".hea.npy"}, true
	default:
		return "", NamingRule{}, false
	}
}

// waveformExts are record file extensions dropped before the rewrite so that
// "foo_hr.hea" and "foo_hr" name the same output.
var waveformExts = []string{".hea", ".dat"}

// OutputFilename derives the converted file name for a manifest path field.
// Manifest paths always use forward slashes.
func OutputFilename(pathField string, rule NamingRule) string {
	base := path.Base(strings.ReplaceAll(pathField, "\\", "/"))
	for _, ext := range waveformExts {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return rule.Marker + strings.ReplaceAll(base, rule.SuffixToken, rule.ExtensionToken)
}

// Command ecgprep prepares the PTB-XL ECG dataset for model training and
// serves normalization and inference over HTTP.
package main

import (
	"os"

	"ecgprep/internal/infrastructure"
)

func main() {
	err := newRootCmd().Execute()
	infrastructure.CloseLogFile()
	if err != nil {
		os.Exit(1)
	}
}

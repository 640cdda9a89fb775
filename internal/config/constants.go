package config

import "time"

// Application constants
const (
	AppName    = "ecgprep"
	AppVersion = "1.0.0"

	// Signal normalizer defaults
	DefaultSamplingRate       = 500
	DefaultTargetLength       = 5000
	DefaultDownsamplingFactor = 5

	// PTB-XL dataset
	DefaultArchiveURL   = "https://physionet.org/static/published-projects/ptb-xl/ptb-xl-a-large-publicly-available-electrocardiography-dataset-1.0.2.zip"
	DefaultProjectURL   = "https://physionet.org/content/ptb-xl/"
	DefaultArchiveFile  = "ptbxl.zip"
	DefaultDataDir      = "data/ptbxl"
	DefaultManifestFile = "ptbxl_database.csv"
	DefaultIDColumn     = "ecg_id"
	DefaultRootHint     = "ptb-xl"

	// Directory layout under the data directory
	ProcessedDirName = "processed"
	ReportsDirName   = "reports"

	// Report artifacts
	ReportJSONFile = "conversion_report.json"
	ReportCSVFile  = "conversion_report.csv"
	ReportXLSXFile = "conversion_report.xlsx"

	// Timeouts
	DefaultInferenceTimeout = 30 * time.Second
)

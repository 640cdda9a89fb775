// Package config loads and validates ecgprep configuration and derives the
// on-disk layout of the dataset.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//	1. Default()
//	2. a YAML file (--config, or ecgprep.yaml / configs/ecgprep.yaml)
//	3. environment variables prefixed ECG_
//
// Command-line flags are applied by the commands on top of the result.
//
// # Environment Variables
//
//	ECG_PREPROCESS_TARGET_LENGTH=5000
//	ECG_PREPROCESS_DOWNSAMPLING_FACTOR=5
//	ECG_DATASET_DATA_DIR=/srv/ptbxl
//	ECG_DATASET_RESOLUTION=lr
//	ECG_INFERENCE_DEVICE=cpu
//	ECG_INFERENCE_MODEL_URL=http://localhost:9000/forward
//	ECG_SERVER_PORT=8080
//	ECG_LOGGING_LEVEL=debug
//
// # Validation
//
// Validate runs go-playground/validator over the struct tags. The
// preprocess sampling rate must be positive even though the normalizer does
// not use it.
package config

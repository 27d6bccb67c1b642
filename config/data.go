package config

import (
	"os"
	"path/filepath"
)

// DATA_DIR is the directory where speedraw stores its databases and work files.
// Defaults to "./data" relative to the working directory.
var DATA_DIR = getDataDir()

// getDataDir determines the data directory path from environment or default.
// Priority: SPEEDRAW_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("SPEEDRAW_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the current data directory path.
// The environment is read on every call so tests and the CLI can redirect it.
func GetDataDir() string {
	return getDataDir()
}

// GetCredentialsDBPath returns the path to the storage credentials database.
// Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetFailuresDBPath returns the path to the failed item outcomes database.
// Path: {DATA_DIR}/failures.db
func GetFailuresDBPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetSuccessDBPath returns the path to the successful item outcomes database.
// Path: {DATA_DIR}/success.db
func GetSuccessDBPath() string {
	return filepath.Join(GetDataDir(), "success.db")
}

// GetBatchQueueDBPath returns the path to the durable queue of submitted batches.
// Path: {DATA_DIR}/BatchQueue.db
func GetBatchQueueDBPath() string {
	return filepath.Join(GetDataDir(), "BatchQueue.db")
}

// GetJobsDir returns the directory holding one folder per submitted batch
// (manifest plus the raw uploaded images).
// Path: {DATA_DIR}/jobs
func GetJobsDir() string {
	return filepath.Join(GetDataDir(), "jobs")
}

// GetUploadsDir returns where original images are kept under their item handle.
// Path: {DATA_DIR}/uploads
func GetUploadsDir() string {
	return filepath.Join(GetDataDir(), "uploads")
}

// GetOutputsDir returns where line art and rendered animations are written.
// Path: {DATA_DIR}/outputs
func GetOutputsDir() string {
	return filepath.Join(GetDataDir(), "outputs")
}

// GetDefaultsFilePath returns the TOML file holding global animation defaults.
// SPEEDRAW_DEFAULTS_FILE overrides the location.
// Path: {DATA_DIR}/defaults.toml
func GetDefaultsFilePath() string {
	if path := os.Getenv("SPEEDRAW_DEFAULTS_FILE"); path != "" {
		return path
	}
	return filepath.Join(GetDataDir(), "defaults.toml")
}

// GetDirectServeBaseDir returns the base directory for the directServe backend.
// Published animations land here and are served by the HTTP server.
// Configurable via SPEEDRAW_SERVE_DIR for server administrators only.
// Defaults to "./serve".
func GetDirectServeBaseDir() string {
	if dir := os.Getenv("SPEEDRAW_SERVE_DIR"); dir != "" {
		return dir
	}
	return "./serve"
}

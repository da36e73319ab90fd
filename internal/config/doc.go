// Package config loads the panel configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. The YAML file passed to Load (unknown keys are rejected)
//	3. PANEL_* environment variables, including a .env file next to the YAML
//
// Environment variables follow the section/field layout:
//
//	PANEL_PATHS_OUTPUT_DIR=/srv/weekly
//	PANEL_LOGGING_LEVEL=debug
//	PANEL_FETCH_REQUESTS_PER_SECOND=0.5
//	PANEL_SERVER_ADDR=:9090
//
// Series definitions, the panel layout and the regression are only read from
// the file.
//
// # Validation
//
// Load validates field rules with go-playground/validator and then checks
// cross references: every panel input names a defined series, every diff
// names a produced column, and every regression variable exists in the
// aligned panel. Failures are returned as ErrConfig application errors.
package config

// Package app wires configuration, logging, telemetry and the pipeline into
// one Application and implements the command-line actions on top of it.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, .env, PANEL_* variables)
//	2. Initialize the JSON logger
//	3. Initialize telemetry (Prometheus registry, optional tracing)
//	4. Build the pipeline
//
// # Lifecycle
//
// Every action returns after its work is done except Serve, which blocks
// until its context is cancelled. Stop must be called once afterwards: it
// writes the metrics textfile, flushes spans and closes the log file.
package app

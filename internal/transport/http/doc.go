// Package http serves the results of the last pipeline run as read-only
// JSON over a chi router.
//
// # Routes
//
//	GET /healthz                 liveness and the last run ID
//	GET /metrics                 Prometheus exposition of the telemetry registry
//	GET /api/series              weekly series summaries
//	GET /api/series/{name}       one weekly series
//	GET /api/panel               the aligned panel
//	GET /api/regression          the fitted model and its diagnostics
//
// Series and panel routes accept from and to query parameters holding ISO
// week keys ("2024-05"); both ends are inclusive.
//
// # Errors
//
// Handlers delegate failures to errors.ErrorHandler, which maps AppError
// types onto status codes. Requests made before a run has completed get
// 404 EMPTY_INPUT.
//
// # Numbers
//
// Missing values are encoded as JSON null. Every float in a response goes
// through a nullable pointer so NaN and Inf never reach the encoder.
package http

// Package http implements the HTTP handlers of the ecgprep service.
//
// Handlers stay thin: they decode and validate the request, call into the
// preprocess, inference or converter packages, and render the result. Every
// failure is rendered as an RFC 7807 problem document by the shared
// errors.ErrorHandler.
//
// Routes:
//
//	GET  /healthz                  liveness and hub statistics
//	GET  /version                  build version
//	POST /api/v1/normalize         raw signal -> normalized sequence
//	POST /api/v1/infer             raw signal or tensor -> model output
//	POST /api/v1/conversions       start a batch conversion (409 while one runs)
//	GET  /api/v1/conversions/latest report of the last finished run
package http

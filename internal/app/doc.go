// Package app wires the ecgprep HTTP service together: configuration,
// logging, telemetry, the websocket progress hub, the conversion pipeline
// and the router. It also owns the server lifecycle.
//
// Initialization order:
//
//  1. OpenTelemetry providers and conversion metrics
//  2. Websocket hub
//  3. Model adapter (only when a model URL is configured)
//  4. Handlers and router
//  5. HTTP server
//
// Run blocks until its context is cancelled, then shuts the server down,
// lets a running conversion observe the cancellation, and stops the hub.
package app

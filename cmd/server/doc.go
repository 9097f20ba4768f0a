// Package main is the entry point for the ClientPilot sandbox service.
//
// The service maintains a bounded pool of page sandboxes shared across
// tenants and executes short scripted tasks against them.
//
// The server provides:
//   - REST API for sandbox management and task execution
//   - WebSocket streaming of pool status
//   - Prometheus metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML sandbox profile overrides
//
// Usage:
//
//	PORT=8000 MAX_SANDBOXES=12 ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

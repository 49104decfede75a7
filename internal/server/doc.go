// Package server holds the process-wide serving state: the context bound
// to the single authenticated user, the MCP HTTP transport, the auth HTTP
// front-end, health endpoints and the Prometheus metrics server.
package server

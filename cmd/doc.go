// Package cmd implements the drivemcp command line interface.
//
// The CLI has two long-running modes: "auth" starts the HTTP front-end
// where users register and complete the Google consent flow, and "serve"
// starts the MCP tool server bound to one registered user.
package cmd

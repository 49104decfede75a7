// Package google holds the Google OAuth2 configuration and the
// authorization-code flow used to obtain Drive tokens for a user.
//
// The OAuth client descriptor (client id/secret) is read from environment
// variables or from a client-secrets JSON file as downloaded from the
// Google Cloud console. Tokens obtained here are persisted per user by the
// credential store; this package never writes to disk itself.
package google

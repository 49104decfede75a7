// Package auth maps local user accounts to Google OAuth tokens.
//
// A user registers once with an id and password; the password is bcrypt
// hashed and the OAuth authorization flow runs against Google. Subsequent
// logins verify the password and refresh the stored token in place. The
// MCP server binds one authenticated user's token for its whole lifetime.
package auth

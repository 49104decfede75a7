// Package drive_tools registers the Google Drive MCP tools.
//
// The tool surface covers folder management (create, list, path
// navigation) and file content access (read, write). Every tool operates
// on behalf of the single user the server process is bound to; write
// tools are only registered when the server allows write operations.
//
// Tool results carry JSON-rendered file metadata so MCP clients can chain
// ids between calls. Failures surface as tool errors rather than protocol
// errors, keeping the session alive.
package drive_tools

// Package drive wraps the Google Drive v3 API with the small set of
// operations the MCP tools expose: folder creation, directory listing,
// path navigation, and file read/write.
//
// The wrapper is a thin pass-through: Drive API errors surface to the
// caller unchanged, and no caching or retry logic lives here.
package drive

package drive

import (
	"path/filepath"
	"strings"
)

// extensionMimeTypes maps file extensions to the MIME type used on upload.
var extensionMimeTypes = map[string]string{
	".txt":   "text/plain",
	".csv":   "text/csv",
	".json":  "application/json",
	".pdf":   "application/pdf",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".mp4":   "video/mp4",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx":  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".py":    "text/plain",
	".ipynb": "application/json",
}

// DefaultMimeType is used when the extension is unknown.
const DefaultMimeType = "application/octet-stream"

// MimeTypeForName infers the upload MIME type from the file extension.
func MimeTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mime, ok := extensionMimeTypes[ext]; ok {
		return mime
	}
	return DefaultMimeType
}

// isTextMimeType reports whether content of the given MIME type is written
// and returned as plain text rather than base64.
func isTextMimeType(mime string) bool {
	return strings.HasPrefix(mime, "text/") || mime == "application/json"
}

// hasKnownExtension reports whether the name ends in one of the extensions
// from the upload table.
func hasKnownExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := extensionMimeTypes[ext]
	return ok
}

package drive

import "time"

// FileInfo represents metadata about a file or folder in Google Drive.
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders)
	Size int64 `json:"size,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime,omitzero"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modifiedTime,omitzero"`

	// WebViewLink is a link for opening the file in a Google editor or viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`
}

// IsFolder reports whether the resource is a Drive folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// FileContent is the result of reading a file: its metadata plus content.
// Binary content is base64-encoded and flagged as such.
type FileContent struct {
	// Info is the file's metadata
	Info *FileInfo `json:"metadata"`

	// Content is the file content, base64-encoded when IsBase64 is set
	Content string `json:"content"`

	// IsBase64 indicates whether Content is base64-encoded binary data
	IsBase64 bool `json:"isBase64"`
}

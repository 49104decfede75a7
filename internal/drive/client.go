package drive

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	// RootFolderID is the alias Drive accepts for the root folder
	RootFolderID = "root"

	// DefaultMaxResults is the listing page size when the caller gives none
	DefaultMaxResults = 100
)

// ErrNotFound is returned when a file, folder or path segment does not exist.
var ErrNotFound = errors.New("not found")

// fileFields are the metadata fields requested on every call.
const fileFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents"

// Client wraps the Google Drive API service for one authenticated user.
type Client struct {
	service *drive.Service
	user    string
}

// User returns the user this client is bound to.
func (c *Client) User() string {
	return c.user
}

// NewClient creates a Drive client authorized by the given token source.
func NewClient(ctx context.Context, user string, ts oauth2.TokenSource) (*Client, error) {
	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: service,
		user:    user,
	}, nil
}

// CreateFolder creates a new folder. An empty parentID means the root folder.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" && parentID != RootFolderID {
		file.Parents = []string{parentID}
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return convertToFileInfo(driveFile), nil
}

// ListDirectory lists the children of a folder, trashed files excluded.
// An empty folderID means the root folder. maxResults of 0 yields an empty
// result without calling the API; pagination beyond maxResults is not
// followed.
func (c *Client) ListDirectory(ctx context.Context, folderID string, maxResults int64) ([]*FileInfo, error) {
	if maxResults < 0 {
		return nil, fmt.Errorf("maxResults must not be negative")
	}
	if maxResults == 0 {
		return []*FileInfo{}, nil
	}
	if folderID == "" {
		folderID = RootFolderID
	}

	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))

	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(maxResults).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %s: %w", folderID, err)
	}

	files := make([]*FileInfo, len(fileList.Files))
	for i, f := range fileList.Files {
		files[i] = convertToFileInfo(f)
	}

	return files, nil
}

// NavigatePath resolves a /-delimited folder path from the root by
// sequential child lookup. It fails with ErrNotFound at the first missing
// segment. "/" and "" resolve to the root folder itself.
func (c *Client) NavigatePath(ctx context.Context, path string) (*FileInfo, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return c.GetFile(ctx, RootFolderID)
	}

	currentID := RootFolderID
	var current *FileInfo
	for _, segment := range segments {
		folder, err := c.findChildFolder(ctx, currentID, segment)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("path %q: folder %q: %w", path, segment, ErrNotFound)
			}
			return nil, err
		}
		current = folder
		currentID = folder.ID
	}

	return current, nil
}

// WriteFile uploads content under the given name. When fileID is set the
// existing file is updated in place; otherwise a new file is created under
// parentID (empty means root). The MIME type is inferred from the file
// extension; content for non-text types may be base64-encoded.
func (c *Client) WriteFile(ctx context.Context, name, content, fileID, parentID string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}

	data, mimeType := filePayload(name, content)
	media := strings.NewReader(string(data))

	if fileID != "" {
		driveFile, err := c.service.Files.Update(fileID, &drive.File{Name: name}).
			Context(ctx).
			Media(media, googleapi.ContentType(mimeType)).
			Fields(googleapi.Field(fileFields)).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to update file %s: %w", fileID, err)
		}
		return convertToFileInfo(driveFile), nil
	}

	file := &drive.File{
		Name:     name,
		MimeType: mimeType,
	}
	if parentID != "" && parentID != RootFolderID {
		file.Parents = []string{parentID}
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(media, googleapi.ContentType(mimeType)).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return convertToFileInfo(driveFile), nil
}

// ReadFile downloads a file by name or id. A name is resolved within
// parentID (empty means root). Text content is returned as-is; binary
// content comes back base64-encoded.
func (c *Client) ReadFile(ctx context.Context, nameOrID, parentID string) (*FileContent, error) {
	if nameOrID == "" {
		return nil, fmt.Errorf("file name or id is required")
	}

	fileID := nameOrID
	if !looksLikeFileID(nameOrID) {
		id, err := c.findFileByName(ctx, parentID, nameOrID)
		if err != nil {
			return nil, err
		}
		fileID = id
	}

	info, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of file %s: %w", fileID, err)
	}

	if isTextMimeType(info.MimeType) && utf8.Valid(data) {
		return &FileContent{Info: info, Content: string(data)}, nil
	}

	return &FileContent{
		Info:     info,
		Content:  base64.StdEncoding.EncodeToString(data),
		IsBase64: true,
	}, nil
}

// GetFile retrieves metadata for a specific file.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	file, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	return convertToFileInfo(file), nil
}

// findChildFolder looks up a folder by name under a parent.
func (c *Client) findChildFolder(ctx context.Context, parentID, name string) (*FileInfo, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
		escapeQuery(parentID), escapeQuery(name), FolderMimeType)

	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if len(fileList.Files) == 0 {
		return nil, ErrNotFound
	}

	return convertToFileInfo(fileList.Files[0]), nil
}

// findFileByName resolves a file id by name within a parent folder.
func (c *Client) findFileByName(ctx context.Context, parentID, name string) (string, error) {
	if parentID == "" {
		parentID = RootFolderID
	}

	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		escapeQuery(parentID), escapeQuery(name))

	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		PageSize(1).
		Fields(googleapi.Field("files(id, name)")).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up file %q: %w", name, err)
	}
	if len(fileList.Files) == 0 {
		return "", fmt.Errorf("file %q: %w", name, ErrNotFound)
	}

	return fileList.Files[0].Id, nil
}

// filePayload prepares the upload bytes and MIME type for a file.
// Text types upload the content verbatim; for anything else the content is
// treated as base64 when it decodes cleanly, raw bytes otherwise.
func filePayload(name, content string) ([]byte, string) {
	mimeType := MimeTypeForName(name)
	if isTextMimeType(mimeType) {
		return []byte(content), mimeType
	}
	if decoded, err := base64.StdEncoding.DecodeString(content); err == nil {
		return decoded, mimeType
	}
	return []byte(content), mimeType
}

// looksLikeFileID applies the same heuristic as the tool surface: Drive ids
// are long opaque strings that never carry a file extension.
func looksLikeFileID(nameOrID string) bool {
	return len(nameOrID) > 20 && !hasKnownExtension(nameOrID)
}

// splitPath breaks a /-delimited path into its non-empty segments.
func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// escapeQuery escapes a value for interpolation into a Drive query string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// convertToFileInfo converts a Drive API File to our FileInfo type.
func convertToFileInfo(f *drive.File) *FileInfo {
	info := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			info.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			info.ModifiedTime = t
		}
	}

	return info
}

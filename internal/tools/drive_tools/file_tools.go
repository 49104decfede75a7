package drive_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/drivemcp/drivemcp/internal/drive"
	"github.com/drivemcp/drivemcp/internal/server"
)

// defaultEncoding is the only text encoding the read tool accepts. Binary
// content is always returned base64-encoded regardless of this setting.
const defaultEncoding = "utf-8"

// registerFileTools registers file content tools
func registerFileTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Write file tool (write operation, only available with !readOnly)
	if !readOnly {
		writeFileTool := mcp.NewTool("drive_write_file",
			mcp.WithDescription("Write a file to Google Drive, creating it or updating an existing one"),
			mcp.WithString("fileName",
				mcp.Required(),
				mcp.Description("The name of the file, including its extension (determines the MIME type)"),
			),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("The file content (plain text for text files, base64-encoded for binary files)"),
			),
			mcp.WithString("fileId",
				mcp.Description("The ID of an existing file to update in place (omit to create a new file)"),
			),
			mcp.WithString("parentId",
				mcp.Description("The ID of the parent folder for a new file (default: root)"),
			),
		)

		s.AddTool(writeFileTool, instrument("drive_write_file", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			name, ok := args["fileName"].(string)
			if !ok || name == "" {
				return mcp.NewToolResultError("fileName is required"), nil
			}

			content, ok := args["content"].(string)
			if !ok {
				return mcp.NewToolResultError("content is required"), nil
			}

			fileID, _ := args["fileId"].(string)
			parentID, _ := args["parentId"].(string)

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			fileInfo, err := client.WriteFile(ctx, name, content, fileID, parentID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to write file: %v", err)), nil
			}

			result, _ := json.MarshalIndent(fileInfo, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("File written successfully:\n%s", string(result))), nil
		}))
	}

	// Read file tool (read-only, always available)
	readFileTool := mcp.NewTool("drive_read_file",
		mcp.WithDescription("Read the content of a file from Google Drive by name or ID"),
		mcp.WithString("fileNameOrId",
			mcp.Required(),
			mcp.Description("The file name (resolved within parentId) or the Drive file ID"),
		),
		mcp.WithString("parentId",
			mcp.Description("The folder to resolve a file name in (default: root; ignored for file IDs)"),
		),
		mcp.WithString("encoding",
			mcp.Description("Text encoding for the returned content (only 'utf-8' is supported)"),
		),
	)

	s.AddTool(readFileTool, instrument("drive_read_file", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		nameOrID, ok := args["fileNameOrId"].(string)
		if !ok || nameOrID == "" {
			return mcp.NewToolResultError("fileNameOrId is required"), nil
		}

		if encoding, ok := args["encoding"].(string); ok && encoding != "" {
			if strings.ToLower(encoding) != defaultEncoding {
				return mcp.NewToolResultError(fmt.Sprintf("unsupported encoding %q, only utf-8 is supported", encoding)), nil
			}
		}

		parentID, _ := args["parentId"].(string)

		client, err := getDriveClient(sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fileContent, err := client.ReadFile(ctx, nameOrID, parentID)
		if err != nil {
			if errors.Is(err, drive.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("File not found: %v", err)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read file: %v", err)), nil
		}

		info, _ := json.MarshalIndent(fileContent.Info, "", "  ")
		if fileContent.IsBase64 {
			return mcp.NewToolResultText(fmt.Sprintf("File metadata:\n%s\n\nContent (base64):\n%s", string(info), fileContent.Content)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("File metadata:\n%s\n\nContent:\n%s", string(info), fileContent.Content)), nil
	}))

	return nil
}

package drive_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/drivemcp/drivemcp/internal/drive"
	"github.com/drivemcp/drivemcp/internal/server"
)

// registerFolderTools registers folder management tools
func registerFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Create folder tool (write operation, only available with !readOnly)
	if !readOnly {
		createFolderTool := mcp.NewTool("drive_create_folder",
			mcp.WithDescription("Create a new folder in Google Drive"),
			mcp.WithString("folderName",
				mcp.Required(),
				mcp.Description("The name of the folder to create"),
			),
			mcp.WithString("parentId",
				mcp.Description("The ID of the parent folder (default: root)"),
			),
		)

		s.AddTool(createFolderTool, instrument("drive_create_folder", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			name, ok := args["folderName"].(string)
			if !ok || name == "" {
				return mcp.NewToolResultError("folderName is required"), nil
			}

			parentID, _ := args["parentId"].(string)

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			folderInfo, err := client.CreateFolder(ctx, name, parentID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create folder: %v", err)), nil
			}

			result, _ := json.MarshalIndent(folderInfo, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Folder created successfully:\n%s", string(result))), nil
		}))
	}

	// List directory tool (read-only, always available)
	listDirectoryTool := mcp.NewTool("drive_list_directory",
		mcp.WithDescription("List the contents of a Google Drive folder"),
		mcp.WithString("folderId",
			mcp.Description("The ID of the folder to list (default: root)"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of entries to return (default: 100; 0 returns an empty listing)"),
		),
	)

	s.AddTool(listDirectoryTool, instrument("drive_list_directory", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		folderID, _ := args["folderId"].(string)

		maxResults := int64(drive.DefaultMaxResults)
		if raw, ok := args["maxResults"].(float64); ok {
			maxResults = int64(raw)
		}

		client, err := getDriveClient(sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		files, err := client.ListDirectory(ctx, folderID, maxResults)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list directory: %v", err)), nil
		}

		response := map[string]interface{}{
			"files": files,
			"count": len(files),
		}

		result, _ := json.MarshalIndent(response, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}))

	// Navigate path tool (read-only, always available)
	navigatePathTool := mcp.NewTool("drive_navigate_path",
		mcp.WithDescription("Resolve a folder path like /Projects/2024 in Google Drive and list its contents"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("The folder path to navigate, starting from the root (e.g. '/Reports/Q4')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of entries to list in the resolved folder (default: 100)"),
		),
	)

	s.AddTool(navigatePathTool, instrument("drive_navigate_path", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		path, ok := args["path"].(string)
		if !ok {
			return mcp.NewToolResultError("path is required"), nil
		}

		maxResults := int64(drive.DefaultMaxResults)
		if raw, ok := args["maxResults"].(float64); ok {
			maxResults = int64(raw)
		}

		client, err := getDriveClient(sc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		folder, err := client.NavigatePath(ctx, path)
		if err != nil {
			if errors.Is(err, drive.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Path not found: %v", err)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to navigate path: %v", err)), nil
		}

		contents, err := client.ListDirectory(ctx, folder.ID, maxResults)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list folder %s: %v", folder.ID, err)), nil
		}

		response := map[string]interface{}{
			"folder":   folder,
			"contents": contents,
		}

		result, _ := json.MarshalIndent(response, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}))

	return nil
}

package drive_tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/drivemcp/drivemcp/internal/drive"
	"github.com/drivemcp/drivemcp/internal/logging"
	"github.com/drivemcp/drivemcp/internal/server"
)

// getDriveClient returns the Drive client for the bound user.
func getDriveClient(sc *server.ServerContext) (*drive.Client, error) {
	client, err := sc.DriveClient()
	if err != nil {
		return nil, fmt.Errorf("failed to access Google Drive for user %s: %w", sc.User(), err)
	}
	return client, nil
}

// instrument wraps a tool handler with an invocation counter and log line.
func instrument(name string, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := handler(ctx, request)

		status := logging.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = logging.StatusError
		}
		server.ObserveToolInvocation(name, status == logging.StatusError)
		slog.Debug("tool invocation", logging.Tool(name), logging.Status(status))

		return result, err
	}
}

// RegisterDriveTools registers all Google Drive tools with the MCP server.
// With readOnly set, tools that modify Drive are not registered at all, so
// they never show up in the client's tool listing.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Register folder operation tools
	if err := registerFolderTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register folder tools: %w", err)
	}

	// Register file operation tools
	if err := registerFileTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register file tools: %w", err)
	}

	return nil
}

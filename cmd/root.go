package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// EnvCredentialsDir overrides the default credential store location.
const EnvCredentialsDir = "DRIVEMCP_CREDENTIALS_DIR"

// rootCmd represents the base command for the drivemcp application
var rootCmd = &cobra.Command{
	Use:   "drivemcp",
	Short: "Google Drive MCP server with per-user authentication",
	Long: `drivemcp exposes Google Drive as MCP (Model Context Protocol) tools.

Users register once through the auth server, pairing a password with a
Google OAuth authorization. The MCP server then runs bound to a single
registered user and serves Drive tools on their behalf.

It can run as:
  - An MCP tool server for AI assistants (serve)
  - An HTTP authentication front-end for registering users (auth)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "drivemcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}

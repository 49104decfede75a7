package google

// DefaultOAuthScopes are the Google OAuth scopes requested for Drive access.
//
// The scopes provide:
//   - drive: full access to the user's Drive
//   - drive.file: access to files created or opened by this app
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.file",
}

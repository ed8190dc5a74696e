// Package onboarding defines the backup-source onboarding wizard: choose a
// platform, connect it over OAuth, pick data sources, configure the schedule
// and create the source.
package onboarding

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Platform is a SaaS platform KeepVault can back up.
type Platform struct {
	ID          string
	Name        string
	Description string
	Endpoint    oauth2.Endpoint
	Scopes      []string
}

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{
	{
		ID:          "google-workspace",
		Name:        "Google Workspace",
		Description: "Gmail, Drive, Calendar and Contacts",
		Endpoint:    endpoints.Google,
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/drive.readonly",
			"https://www.googleapis.com/auth/calendar.readonly",
		},
	},
	{
		ID:          "microsoft-365",
		Name:        "Microsoft 365",
		Description: "Outlook, OneDrive, SharePoint and Teams",
		Endpoint:    endpoints.AzureAD("common"),
		Scopes:      []string{"offline_access", "Mail.Read", "Files.Read.All", "Sites.Read.All"},
	},
	{
		ID:          "github",
		Name:        "GitHub",
		Description: "Repositories, issues and wikis",
		Endpoint:    endpoints.GitHub,
		Scopes:      []string{"repo", "read:org"},
	},
	{
		ID:          "slack",
		Name:        "Slack",
		Description: "Channels, messages and files",
		Endpoint:    endpoints.Slack,
		Scopes:      []string{"channels:history", "channels:read", "files:read"},
	},
}

// PlatformByID looks up a platform.
func PlatformByID(id string) (Platform, bool) {
	for _, p := range Platforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}

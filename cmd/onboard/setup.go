package main

import (
	"fmt"
	"os"

	"github.com/keepvault/onboard/internal/config"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project  bool
	force    bool
	apiURL   string
	apiToken string
	clientID string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create onboard configuration file",
	Long: `Create an onboard configuration file with sensible defaults.

By default, creates a global config at ~/.config/onboard/onboard.yml.
Use --project to create a project-local config in the current directory.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVar(&setupFlags.apiURL, "api-url", "", "KeepVault API base URL")
	setupCmd.Flags().StringVar(&setupFlags.apiToken, "api-token", "", "KeepVault API token")
	setupCmd.Flags().StringVar(&setupFlags.clientID, "client-id", "", "OAuth client id")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	cfg := config.Default()
	if setupFlags.apiURL != "" {
		cfg.APIURL = setupFlags.apiURL
	}
	cfg.APIToken = setupFlags.apiToken
	cfg.OAuth.ClientID = setupFlags.clientID

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Config written to: %s\n\n", targetPath)
	if cfg.APIToken == "" {
		fmt.Println("Add your api_token (or export ONBOARD_API_TOKEN), then run 'onboard'.")
		return nil
	}
	fmt.Println("Run 'onboard' to get started.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

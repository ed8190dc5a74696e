package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/tui/theme"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "█▀█ █▄ █ █▄▄ █▀█ ▄▀█ █▀█ █▀▄"
	logoText2 = "█▄█ █ ▀█ █▄█ █▄█ █▀█ █▀▄ █▄▀"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Connect a platform to KeepVault and create a backup source",
	RunE:  runStart,
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.NewCatppuccinMocha()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

onboard walks you through connecting a SaaS platform to KeepVault: pick the
platform, authorize access, choose the data to protect, set a schedule and
create the backup source.

Progress is saved after every step. Quit at any time and run onboard again
within the resume window to pick up where you left off.`

	addStoreFlags(rootCmd)
	rootCmd.Flags().BoolVar(&startFlags.fresh, "fresh", false, "Discard any saved progress and start over")
	rootCmd.Flags().StringVar(&startFlags.layout, "layout", "auto", "Layout: auto, full or compact")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(setupCmd)
}

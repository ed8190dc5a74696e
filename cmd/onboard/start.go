package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/term"
	"github.com/keepvault/onboard/internal/api"
	"github.com/keepvault/onboard/internal/config"
	"github.com/keepvault/onboard/internal/hooks"
	"github.com/keepvault/onboard/internal/logger"
	"github.com/keepvault/onboard/internal/onboarding"
	tuionboarding "github.com/keepvault/onboard/internal/tui/onboarding"
	tuiwizard "github.com/keepvault/onboard/internal/tui/wizard"
	"github.com/keepvault/onboard/internal/wizard"
	"github.com/spf13/cobra"
)

var startFlags struct {
	fresh  bool
	layout string
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.APIToken == "" {
		return errors.New("no API token configured\n\nRun 'onboard setup --api-token <token>' or export ONBOARD_API_TOKEN")
	}
	if a.cfg.OAuth.ClientID == "" {
		return errors.New("no OAuth client configured\n\nSet oauth.client_id in your config or export ONBOARD_OAUTH_CLIENT_ID")
	}

	if startFlags.fresh {
		a.records.Clear(ctx)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	hooksCfg, err := hooks.LoadConfig(workDir)
	if err != nil {
		return err
	}

	flow := onboarding.NewFlow(api.NewClient(a.cfg.APIURL, a.cfg.APIToken), onboarding.NewOAuth(a.cfg.OAuth))
	steps := hooks.Attach(hooksCfg, flow.Steps(), workDir, onboarding.WizardID, onboarding.SessionID)
	viewport, err := applyLayoutFlag(a.cfg, startFlags.layout)
	if err != nil {
		return err
	}
	def, err := flow.DefinitionFor(steps, definitionOptions(a.cfg)...)
	if err != nil {
		return err
	}

	notes := make(chan wizard.Notification, 4)
	ctrl := wizard.New(ctx, def,
		wizard.WithStore(a.records),
		wizard.WithInitialData(onboarding.InitialData()),
		wizard.WithNotifier(tuiwizard.ChannelNotifier(notes)),
		wizard.WithContinuousPersistence(a.cfg.PersistOnChange),
		wizard.WithDefaultCancel(func() { logger.Info("Onboarding cancelled by user") }),
	)

	model := tuiwizard.NewModel(ctx, ctrl, tuionboarding.Views(),
		tuiwizard.WithViewport(viewport),
		tuiwizard.WithBreakpoint(a.cfg.CompactWidth),
		tuiwizard.WithNotifications(notes),
		tuiwizard.WithDoneView(tuionboarding.DoneView(flow)),
	)

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	switch {
	case model.Cancelled():
		fmt.Println("Setup cancelled.")
	case flow.Created() != nil:
		src := flow.Created()
		fmt.Printf("Backup source %s (%s) created.\n", src.Name, src.ID)
	default:
		fmt.Println("Progress saved. Run 'onboard' again to continue.")
	}
	return nil
}

func definitionOptions(cfg *config.Config) []wizard.DefinitionOption {
	return []wizard.DefinitionOption{
		wizard.EnableStateRecovery(cfg.StateRecovery),
		wizard.AllowStepSkipping(cfg.AllowStepSkipping),
		wizard.MobileOptimized(cfg.MobileOptimized),
	}
}

func terminalSize() (int, int, error) { return term.GetSize(os.Stdout.Fd()) }

// applyLayoutFlag adjusts cfg for the --layout flag and returns the viewport
// the model measures. "auto" leaves the choice to the terminal width.
func applyLayoutFlag(cfg *config.Config, layout string) (tuiwizard.ViewportFunc, error) {
	switch layout {
	case "auto", "":
		return terminalSize, nil
	case "full":
		cfg.MobileOptimized = false
		return terminalSize, nil
	case "compact":
		cfg.MobileOptimized = true
		cfg.CompactWidth = math.MaxInt
		return func() (int, int, error) {
			w, h, err := terminalSize()
			if err != nil {
				return 1, 0, nil
			}
			return w, h, nil
		}, nil
	default:
		return nil, fmt.Errorf("invalid layout %q (want auto, full or compact)", layout)
	}
}

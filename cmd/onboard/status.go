package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved onboarding progress",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, ok := a.records.Load(ctx)
	if !ok {
		fmt.Println("No saved progress.")
		return nil
	}

	completed := "none"
	if len(rec.CompletedStepIDs) > 0 {
		completed = strings.Join(rec.CompletedStepIDs, ", ")
	}
	fmt.Printf("Store:        %s (%s)\n", a.cfg.Store, a.cfg.DataDir)
	fmt.Printf("Step:         %d\n", rec.StepIndex+1)
	fmt.Printf("Completed:    %s\n", completed)
	fmt.Printf("Started:      %s\n", rec.StartedAt.Local().Format(time.DateTime))
	fmt.Printf("Last active:  %s\n", rec.LastActiveAt.Local().Format(time.DateTime))

	if a.records.IsResumable(ctx) {
		expires := rec.LastActiveAt.Add(a.records.Window())
		fmt.Printf("\nResumable until %s. Run 'onboard' to continue.\n", expires.Local().Format(time.DateTime))
	} else {
		fmt.Println("\nThe session is too old to resume. Run 'onboard --fresh' to start over.")
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard saved onboarding progress",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.records.Load(ctx); !ok {
		fmt.Println("No saved progress.")
		return nil
	}
	a.records.Clear(ctx)
	fmt.Println("Saved progress cleared.")
	return nil
}

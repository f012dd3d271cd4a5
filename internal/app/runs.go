package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/output"
	"github.com/fieldline-systems/geotrack/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List tracking run history",
	Long: `List past and active tracking runs, newest first.

Each run shows when it started, how long it lasted, how many fixes were
logged, why it ended, and where its sample log lives. Runs that ended for
an internal reason (broken feed, repeated log failures) are marked as such.`,
	Example: `  geotrack runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := getDBPath()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}

		db, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.CreateSchema(); err != nil {
			return fmt.Errorf("failed to create database schema: %w", err)
		}

		runs, err := db.ListRuns()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		fmt.Print(output.RenderRunsTable(runs))
		return nil
	},
}

package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/store"
	"github.com/fieldline-systems/geotrack/internal/tracker"
	"github.com/fieldline-systems/geotrack/internal/widget"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <widget-id>",
	Short: "Flip a widget's tracking toggle",
	Long: `Flip the persisted toggle for a widget and command the daemon to match.

The flip always succeeds from the widget's point of view: the new flag is
persisted and displayed even if the daemon is unreachable, and the daemon
picks up persisted intent the next time it starts.

Flipping any widget on starts tracking; flipping it off stops tracking.
Toggles are independent per widget id, but they all drive the same single
tracking run.`,
	Example: `  # Flip widget 1
  geotrack toggle 1

  # A second widget can control tracking too
  geotrack toggle 2`,
	Args: cobra.ExactArgs(1),
	RunE: runToggle,
}

func runToggle(cmd *cobra.Command, args []string) error {
	widgetID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid widget id %q: must be an integer", args[0])
	}

	dbPath, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}
	socketPath, err := getSocketPath()
	if err != nil {
		return err
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	surface := &widget.Surface{
		Store:     db,
		Commander: &tracker.Client{SocketPath: socketPath},
	}

	if surface.OnToggle(widgetID) {
		fmt.Printf("Widget %d: on (tracking requested)\n", widgetID)
	} else {
		fmt.Printf("Widget %d: off (stop requested)\n", widgetID)
	}

	return nil
}

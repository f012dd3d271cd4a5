package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/tracker"
)

// start and stop bypass the widget toggles and command the daemon directly.
// Both are idempotent on the daemon side.

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracking",
	Long: `Ask the running daemon to start a tracking run.

Unlike 'geotrack toggle', this does not change any widget flag. If tracking
is already running the command is a no-op.`,
	Example: `  geotrack start`,
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath, err := getSocketPath()
		if err != nil {
			return err
		}
		client := &tracker.Client{SocketPath: socketPath}
		if err := client.Start(); err != nil {
			return err
		}
		fmt.Println("Tracking start requested")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracking",
	Long: `Ask the running daemon to stop the current tracking run.

If tracking is not running the command is a no-op. The daemon itself keeps
running; use 'geotrack track --stop' to shut it down.`,
	Example: `  geotrack stop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath, err := getSocketPath()
		if err != nil {
			return err
		}
		client := &tracker.Client{SocketPath: socketPath}
		if err := client.Stop(); err != nil {
			return err
		}
		fmt.Println("Tracking stop requested")
		return nil
	},
}

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/notify"
	"github.com/fieldline-systems/geotrack/internal/output"
	"github.com/fieldline-systems/geotrack/internal/store"
	"github.com/fieldline-systems/geotrack/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracking status and widget toggles",
	Long: `Show whether the daemon is up, the current run state, the latest
notification snapshot, and the persisted widget toggles.

The run state comes from the daemon's control socket when it is reachable.
Toggles reflect persisted intent, which can differ from the actual state if
the daemon is down.`,
	Example: `  geotrack status`,
	RunE:    runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}
	socketPath, err := getSocketPath()
	if err != nil {
		return err
	}
	notifyPath, err := getNotifyPath()
	if err != nil {
		return err
	}
	dbPath, err := getDBPath()
	if err != nil {
		return err
	}

	daemonUp, err := tracker.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	state := "stopped"
	if daemonUp {
		fmt.Println("Daemon: running")
		client := &tracker.Client{SocketPath: socketPath}
		if state, err = client.Status(); err != nil {
			fmt.Printf("Daemon: unreachable (%v)\n", err)
			state = "unknown"
		}
	} else {
		fmt.Println("Daemon: not running (geotrack track --daemon)")
	}

	snapshot, err := notify.Read(notifyPath)
	if err != nil {
		fmt.Printf("Notification snapshot unreadable: %v\n", err)
	}
	fmt.Print(output.RenderStatus(state, snapshot))

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	toggles, err := db.ListToggles()
	if err != nil {
		return fmt.Errorf("failed to list toggles: %w", err)
	}
	fmt.Println()
	fmt.Print(output.RenderToggleTable(toggles))

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	fmt.Printf("\nRuns recorded: %d (geotrack runs for details)\n", len(runs))

	return nil
}

package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dataDir string

	// RootCmd is the root command for geotrack
	RootCmd = &cobra.Command{
		Use:   "geotrack",
		Short: "Background location tracking with toggleable widgets",
		Long: `geotrack records location fixes to per-run CSV logs, controlled by
persisted widget toggles or direct commands.

IMPORTANT: You must run 'geotrack track --daemon' for tracking to happen.
The daemon tails the configured fix feed and appends one line per fix to
the current run log, fsyncing each write.

Quick Start:
  1. Configure the fix feed in ~/.config/geotrack/config
  2. geotrack track --daemon  # Keep this running!
  3. geotrack toggle 1        # flip widget 1 on
  4. geotrack status

Features:
  • Per-widget persisted toggles that survive restarts
  • Durable per-run CSV sample logs
  • Automatic stop on repeated log failures or a broken feed
  • Live fix streaming to any number of listeners
  • Run history with stop reasons and sample counts

Examples:
  # Check tracking status
  geotrack status

  # Start the tracking daemon
  geotrack track --daemon

  # Flip a widget
  geotrack toggle 1

  # Watch fixes live
  geotrack feed

  # Review past runs
  geotrack runs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("geotrack: background location tracking")
			fmt.Println()
			fmt.Println("Run 'geotrack track --daemon' to start the tracking daemon.")
			fmt.Println("Run 'geotrack toggle <widget-id>' to flip a widget.")
			fmt.Println("Run 'geotrack --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: ~/.geotrack)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(trackCmd)
	RootCmd.AddCommand(toggleCmd)
	RootCmd.AddCommand(startCmd)
	RootCmd.AddCommand(stopCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(runsCmd)
	RootCmd.AddCommand(feedCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDataDir returns the data directory, using the flag value or default,
// creating it if needed.
func getDataDir() (string, error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".geotrack")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func getDBPath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "geotrack.db"), nil
}

func getSocketPath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "control.sock"), nil
}

func getLeasePath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "run.lease"), nil
}

func getRunDir() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	runDir := filepath.Join(dir, "runs")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return runDir, nil
}

func getNotifyPath() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "notify.json"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "track.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "track.log"), nil
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/config"
	"github.com/fieldline-systems/geotrack/internal/gps"
	"github.com/fieldline-systems/geotrack/internal/notify"
	"github.com/fieldline-systems/geotrack/internal/output"
	"github.com/fieldline-systems/geotrack/internal/store"
	"github.com/fieldline-systems/geotrack/internal/tracker"
)

var (
	trackDaemon      bool
	trackDaemonChild bool
	trackPIDFile     string
	trackLogFile     string
	trackStop        bool
	trackFeedPath    string

	trackCmd = &cobra.Command{
		Use:   "track",
		Short: "Run the location tracking daemon",
		Long: `Run the tracking daemon that tails the fix feed and writes run logs.

The daemon owns the tracking state machine. Widgets and commands reach it
over a control socket; only one daemon runs at a time. On startup it
reconciles with persisted toggle state, so a widget left on resumes
tracking automatically.

Track modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon

While tracking, each fix is appended to the current run log and fsynced
before the next fix is processed. Three consecutive failed writes stop the
run; a broken feed stops it immediately. Either way the persisted toggles
are cleared so they match reality.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  geotrack track

  # Run as background daemon
  geotrack track --daemon

  # Stop running daemon
  geotrack track --stop

  # Override the configured fix feed
  geotrack track --feed /var/run/gpsd/fixes`,
		RunE: runTrack,
	}
)

func init() {
	trackCmd.Flags().BoolVar(&trackDaemon, "daemon", false, "run as background daemon")
	trackCmd.Flags().BoolVar(&trackDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	trackCmd.Flags().StringVar(&trackPIDFile, "pid-file", "", "PID file path (default: ~/.geotrack/track.pid)")
	trackCmd.Flags().StringVar(&trackLogFile, "log-file", "", "log file path (default: ~/.geotrack/track.log)")
	trackCmd.Flags().BoolVar(&trackStop, "stop", false, "stop running daemon")
	trackCmd.Flags().StringVar(&trackFeedPath, "feed", "", "fix feed path (default: from config file)")

	// Hide the internal daemon-child flag from help
	trackCmd.Flags().MarkHidden("daemon-child")
}

func runTrack(cmd *cobra.Command, args []string) error {
	if trackPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		trackPIDFile = defaultPID
	}

	if trackLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		trackLogFile = defaultLog
	}

	if trackStop {
		return stopTrackDaemon()
	}

	if trackDaemon {
		return startTrackDaemon()
	}

	return runTracking(trackDaemonChild)
}

func stopTrackDaemon() error {
	running, err := tracker.IsDaemonRunning(trackPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	spinner.Start()
	if err := tracker.StopDaemon(trackPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func startTrackDaemon() error {
	running, err := tracker.IsDaemonRunning(trackPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", trackPIDFile)
	}

	spinner := output.NewSpinner("Starting daemon...")
	spinner.Start()
	if err := tracker.StartDaemon(trackPIDFile, trackLogFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nTracking daemon started\n")
	fmt.Printf("  PID file: %s\n", trackPIDFile)
	fmt.Printf("  Log file: %s\n", trackLogFile)
	fmt.Printf("\nTo stop: geotrack track --stop\n")

	return nil
}

// runTracking is the daemon body, shared by foreground mode and the forked
// daemon child. The child must not print to stdout since it is redirected
// to the log file.
func runTracking(child bool) error {
	dbPath, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}
	socketPath, err := getSocketPath()
	if err != nil {
		return err
	}
	leasePath, err := getLeasePath()
	if err != nil {
		return err
	}
	runDir, err := getRunDir()
	if err != nil {
		return err
	}
	notifyPath, err := getNotifyPath()
	if err != nil {
		return err
	}

	cfgDir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("failed to resolve config directory: %w", err)
	}
	cfg, err := config.Load(cfgDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	feedPath := trackFeedPath
	if feedPath == "" {
		feedPath = cfg.FeedPath
	}
	if feedPath == "" {
		return fmt.Errorf("no fix feed configured: set feed= in %s/config or pass --feed", cfgDir)
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.CreateSchema(); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	tr, err := tracker.New(tracker.Config{
		Store:       db,
		Source:      gps.NewFeedSource(feedPath, gps.DefaultPollInterval),
		Notifier:    notify.NewPresenter(notifyPath),
		RunDir:      runDir,
		LeasePath:   leasePath,
		MinInterval: cfg.MinInterval,
		MinDistance: cfg.MinDistance,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	srv := tracker.NewControlServer(tr, socketPath)
	if err := srv.Listen(); err != nil {
		return err
	}

	if !child {
		fmt.Println("Tracking daemon running (press Ctrl+C to stop)...")
		fmt.Printf("  Feed:   %s\n", feedPath)
		fmt.Printf("  Socket: %s\n", socketPath)
		fmt.Println()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveDone := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(serveDone)
	}()

	trackerDone := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(trackerDone)
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	if !child {
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
	}

	cancel()
	<-trackerDone
	<-serveDone

	if child {
		if err := os.Remove(trackPIDFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove PID file: %w", err)
		}
	}

	return nil
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldline-systems/geotrack/internal/gps"
	"github.com/fieldline-systems/geotrack/internal/tracker"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Stream live fixes from the daemon",
	Long: `Stream fixes from the current tracking run as they arrive, one CSV line
per fix, until interrupted.

The stream is live only: fixes logged before the stream opened are not
replayed, and a stream that falls behind misses fixes rather than stalling
the tracker. Read the run log for the complete record.`,
	Example: `  # Watch fixes as they come in
  geotrack feed

  # Pipe into other tools
  geotrack feed | awk -F, '{print $2, $3}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath, err := getSocketPath()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			<-sigCh
			cancel()
		}()

		client := &tracker.Client{SocketPath: socketPath}
		return client.Feed(ctx, func(s gps.Sample) {
			fmt.Println(gps.FormatLine(s))
		})
	},
}

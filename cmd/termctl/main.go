// termctl is a command-line client for a running termhub daemon. It
// speaks the same WebSocket RPC protocol as the desktop app.
package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselko/termhub/internal/client"
	"github.com/mselko/termhub/internal/config"
)

// version and build are injected at link time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.build=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	build   = "unknown"
)

var flagAddr string

var rootCmd = &cobra.Command{
	Use:   "termctl",
	Short: "Control a running termhub daemon",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The config file supplies the daemon address unless --addr is set.
		if flagAddr == "" {
			cfg, err := config.Load(config.DefaultPath())
			if err != nil {
				return err
			}
			flagAddr = cfg.Listen
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "daemon address (host:port, default from config)")
}

// dialDaemon connects to the daemon within a bounded dial window.
func dialDaemon(ctx context.Context) (*client.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Dial(dialCtx, flagAddr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client and daemon versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("termctl %s (%s)\n", version, build)

		c, err := dialDaemon(cmd.Context())
		if err != nil {
			cmd.Println("daemon: unreachable")
			return nil
		}
		defer c.Close()

		var health struct {
			Version string `json:"version"`
			Build   string `json:"build"`
		}
		if err := c.Call(cmd.Context(), "health", nil, &health); err != nil {
			return err
		}
		cmd.Printf("daemon:  %s (%s)\n", health.Version, health.Build)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/mselko/termhub/internal/session"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show daemon host and health information",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		var info session.SystemInfo
		if err := c.Call(cmd.Context(), "system_info", nil, &info); err != nil {
			return err
		}
		var health struct {
			Status         string `json:"status"`
			Version        string `json:"version"`
			Build          string `json:"build"`
			UptimeSeconds  int64  `json:"uptime_seconds"`
			ActiveSessions int    `json:"active_sessions"`
		}
		if err := c.Call(cmd.Context(), "health", nil, &health); err != nil {
			return err
		}

		cmd.Printf("daemon:    %s %s (%s), up %ds\n", health.Status, health.Version, health.Build, health.UptimeSeconds)
		cmd.Printf("platform:  %s/%s\n", info.Platform, info.Arch)
		cmd.Printf("shell:     %s\n", info.Shell)
		cmd.Printf("cwd:       %s\n", info.WorkingDirectory)
		cmd.Printf("sessions:  %d\n", health.ActiveSessions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mselko/termhub/internal/session"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active terminal sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		var sessions []session.View
		if err := c.Call(cmd.Context(), "list_sessions", nil, &sessions); err != nil {
			return err
		}
		if len(sessions) == 0 {
			cmd.Println("no active sessions")
			return nil
		}
		for _, s := range sessions {
			pid := 0
			if s.PID != nil {
				pid = *s.PID
			}
			cmd.Printf("%s  %-8s  pid=%-7d  started=%s  %s\n",
				s.ID, s.Status, pid, s.StartTime.Format(time.RFC3339), s.Command)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

package main

import (
	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <session-id>",
	Short: "Terminate a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Call(cmd.Context(), "kill_session", map[string]any{"session_id": args[0]}, nil); err != nil {
			return err
		}
		cmd.Printf("killed %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}

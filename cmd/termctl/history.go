package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselko/termhub/internal/history"
)

var (
	historyClear    bool
	historyClearAll bool
)

var historyCmd = &cobra.Command{
	Use:   "history [tab-id]",
	Short: "Show or clear a tab's command history",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		if historyClearAll {
			if err := c.Call(cmd.Context(), "clear_command_history", map[string]any{"tab_id": nil}, nil); err != nil {
				return err
			}
			cmd.Println("cleared all history")
			return nil
		}

		if len(args) != 1 {
			return errors.New("tab-id is required")
		}
		tabID := args[0]

		if historyClear {
			if err := c.Call(cmd.Context(), "clear_command_history", map[string]any{"tab_id": tabID}, nil); err != nil {
				return err
			}
			cmd.Printf("cleared history for %s\n", tabID)
			return nil
		}

		var resp struct {
			Entries []history.Entry `json:"entries"`
		}
		if err := c.Call(cmd.Context(), "load_command_history", map[string]any{"tab_id": tabID}, &resp); err != nil {
			return err
		}
		if len(resp.Entries) == 0 {
			cmd.Println("no history")
			return nil
		}
		for _, e := range resp.Entries {
			line := fmt.Sprintf("%s  %s", e.Timestamp.Format(time.RFC3339), e.Command)
			if e.ExitCode != nil {
				line = fmt.Sprintf("%s  (exit %d)", line, *e.ExitCode)
			}
			cmd.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "clear this tab's history")
	historyCmd.Flags().BoolVar(&historyClearAll, "clear-all", false, "clear every tab's history")
	rootCmd.AddCommand(historyCmd)
}

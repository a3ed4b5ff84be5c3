package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var execDir string

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- command [args...]",
	Short: "Run a one-shot command on the daemon and print its output",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no command given")
		}
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		req := map[string]any{"command": strings.Join(args, " ")}
		if execDir != "" {
			req["working_directory"] = execDir
		}
		var resp struct {
			Output string `json:"output"`
		}
		if err := c.Call(cmd.Context(), "execute", req, &resp); err != nil {
			return err
		}
		if resp.Output != "" {
			cmd.Print(resp.Output)
			if !strings.HasSuffix(resp.Output, "\n") {
				cmd.Println()
			}
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringVar(&execDir, "dir", "", "working directory for the command")
	rootCmd.AddCommand(execCmd)
}

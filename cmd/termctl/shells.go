package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mselko/termhub/internal/session"
)

var shellsCmd = &cobra.Command{
	Use:   "shells",
	Short: "List shells available on the daemon host",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		var shells []session.Shell
		if err := c.Call(cmd.Context(), "list_shells", nil, &shells); err != nil {
			return err
		}
		var def struct {
			Shell string `json:"shell"`
		}
		if err := c.Call(cmd.Context(), "default_shell", nil, &def); err != nil {
			return err
		}

		for _, sh := range shells {
			marker := " "
			if sh.Path == def.Shell || sh.Name == def.Shell {
				marker = "*"
			}
			argsNote := ""
			if len(sh.Args) > 0 {
				argsNote = " " + strings.Join(sh.Args, " ")
			}
			cmd.Printf("%s %-12s %s%s\n", marker, sh.Name, sh.Path, argsNote)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellsCmd)
}

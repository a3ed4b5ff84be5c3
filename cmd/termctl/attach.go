package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mselko/termhub/internal/client"
	"github.com/mselko/termhub/internal/session"
)

// detachKey is Ctrl-], the same escape telnet uses.
const detachKey = 0x1d

var (
	attachShell string
	attachDir   string
	attachTab   string
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Open an interactive session wired to this terminal",
	Long: `Attach creates a new PTY session on the daemon and bridges it to the
current terminal: keystrokes go to the session, session output is written
here, and window resizes follow the local terminal. Press Ctrl-] to detach
and leave the session running.`,
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachShell, "shell", "", "shell to launch (default: daemon's default shell)")
	attachCmd.Flags().StringVar(&attachDir, "dir", "", "working directory for the session")
	attachCmd.Flags().StringVar(&attachTab, "tab", "cli", "tab id the session is filed under")
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return errors.New("attach requires an interactive terminal")
	}
	stdinFd := int(os.Stdin.Fd())

	c, err := dialDaemon(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	shell := attachShell
	if shell == "" {
		var def struct {
			Shell string `json:"shell"`
		}
		if err := c.Call(cmd.Context(), "default_shell", nil, &def); err != nil {
			return err
		}
		shell = def.Shell
	}

	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		cols, rows = 80, 24
	}

	create := map[string]any{
		"tab_id": attachTab,
		"shell":  shell,
		"cols":   cols,
		"rows":   rows,
	}
	if attachDir != "" {
		create["working_directory"] = attachDir
	}
	var view session.View
	if err := c.Call(cmd.Context(), "create_session", create, &view); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "attached to %s (detach: Ctrl-])\r\n", view.ID)

	oldState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(stdinFd, oldState)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Keystrokes go to the session verbatim; Ctrl-] detaches. A nil on
	// inputErr means detach was requested.
	inputErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, readErr := os.Stdin.Read(buf)
			if n > 0 {
				data := buf[:n]
				if i := bytes.IndexByte(data, detachKey); i >= 0 {
					if i > 0 {
						sendInput(ctx, c, view.ID, data[:i])
					}
					inputErr <- nil
					return
				}
				if err := sendInput(ctx, c, view.ID, data); err != nil {
					inputErr <- err
					return
				}
			}
			if readErr != nil {
				inputErr <- readErr
				return
			}
		}
	}()

	winch, stopWinch := resizeNotifications()
	defer stopWinch()

	for {
		select {
		case frame, ok := <-c.Events():
			if !ok {
				return errors.New("connection to daemon lost")
			}
			if frame.Event != session.EventTerminalOutput {
				continue
			}
			var chunk session.OutputChunk
			if err := json.Unmarshal(frame.Payload, &chunk); err != nil {
				continue
			}
			if chunk.SessionID != view.ID {
				continue
			}
			if chunk.Kind == session.ChunkExit {
				term.Restore(stdinFd, oldState)
				fmt.Printf("\r\n%s\r\n", chunk.Content)
				return nil
			}
			os.Stdout.WriteString(chunk.Content)
		case <-winch:
			if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				resize := map[string]any{"session_id": view.ID, "cols": w, "rows": h}
				_ = c.Call(ctx, "resize", resize, nil)
			}
		case err := <-inputErr:
			if err != nil {
				return err
			}
			term.Restore(stdinFd, oldState)
			fmt.Printf("\r\ndetached from %s\r\n", view.ID)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sendInput(ctx context.Context, c *client.Client, sessionID string, data []byte) error {
	return c.Call(ctx, "send_input", map[string]any{"session_id": sessionID, "data": string(data)}, nil)
}

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ExecRequest is a one-off, non-interactive command invocation.
type ExecRequest struct {
	Command string            `json:"command"`
	Cwd     string            `json:"working_directory,omitempty"`
	Env     map[string]string `json:"environment,omitempty"`
}

// Execute runs a single command line under the platform interpreter
// (cmd /C on Windows, sh -c elsewhere) and blocks until it finishes.
// On exit 0 it returns the command's stdout; on a non-zero exit the
// stderr/stdout pair is folded into the returned string. An empty command
// line returns the empty string. Execute has no intrinsic timeout; bound
// it through ctx. It never registers a session.
func Execute(ctx context.Context, req ExecRequest) (string, error) {
	line := strings.TrimSpace(req.Command)
	if line == "" {
		return "", nil
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", line)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", line)
	}
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	cmd.Env = append(os.Environ(), envSlice(req.Env)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("Error: %s\nOutput: %s", stderr.String(), stdout.String()), nil
	}
	return "", fmt.Errorf("%w: %v", ErrExecFailed, err)
}

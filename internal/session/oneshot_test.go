package session

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExecuteEmptyCommand(t *testing.T) {
	out, err := Execute(context.Background(), ExecRequest{Command: "   "})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if out != "" {
		t.Fatalf("out=%q want empty", out)
	}
}

func TestExecuteReturnsStdout(t *testing.T) {
	skipOnWindows(t)
	out, err := Execute(context.Background(), ExecRequest{Command: "echo hello"})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if out != "hello\n" {
		t.Fatalf("out=%q want %q", out, "hello\n")
	}
}

// A non-zero exit is not a transport failure: the caller gets the folded
// stderr/stdout text and a nil error.
func TestExecuteFoldsNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	out, err := Execute(context.Background(), ExecRequest{
		Command: "echo out; echo err 1>&2; exit 3",
	})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	want := "Error: err\n\nOutput: out\n"
	if out != want {
		t.Fatalf("out=%q want=%q", out, want)
	}
}

func TestExecuteWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	// The child resolves symlinks when it chdirs, so compare against the
	// physical path.
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	out, err := Execute(context.Background(), ExecRequest{Command: "pwd", Cwd: dir})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if got := strings.TrimSpace(out); got != want {
		t.Fatalf("pwd=%q want=%q", got, want)
	}
}

func TestExecutePassesEnvironment(t *testing.T) {
	skipOnWindows(t)
	out, err := Execute(context.Background(), ExecRequest{
		Command: "echo $TERMHUB_TEST_VALUE",
		Env:     map[string]string{"TERMHUB_TEST_VALUE": "orange"},
	})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if out != "orange\n" {
		t.Fatalf("out=%q want %q", out, "orange\n")
	}
}

func TestExecuteStartFailure(t *testing.T) {
	_, err := Execute(context.Background(), ExecRequest{
		Command: "echo hi",
		Cwd:     filepath.Join(t.TempDir(), "missing"),
	})
	if !errors.Is(err, ErrExecFailed) {
		t.Fatalf("err=%v want ErrExecFailed", err)
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix shell syntax")
	}
}

//go:build windows

package session

import (
	"errors"
	"os"
	"os/exec"
)

// Windows hosts have no Unix PTY; interactive sessions fail at allocation
// while one-shot execution, shell probing, and history keep working.
var errNoWindowsPTY = errors.New("pty is not supported on windows")

func openPTY(cols, rows int) (*os.File, *os.File, error) {
	return nil, nil, errNoWindowsPTY
}

func startChild(cmd *exec.Cmd, slave *os.File) error {
	return errNoWindowsPTY
}

func resizePTY(master *os.File, cols, rows int) error {
	return errNoWindowsPTY
}

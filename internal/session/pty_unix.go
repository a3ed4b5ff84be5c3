//go:build !windows

package session

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// openPTY allocates a master/slave pair sized to cols×rows.
func openPTY(cols, rows int) (master, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, err
	}
	if err := pty.Setsize(master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		master.Close()
		slave.Close()
		return nil, nil, err
	}
	return master, slave, nil
}

// startChild spawns cmd with the slave as its controlling terminal. The
// caller closes the slave after a successful start so EOF propagates on
// the master once the child exits.
func startChild(cmd *exec.Cmd, slave *os.File) error {
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
	return cmd.Start()
}

// resizePTY applies cols×rows to the master.
func resizePTY(master *os.File, cols, rows int) error {
	return pty.Setsize(master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

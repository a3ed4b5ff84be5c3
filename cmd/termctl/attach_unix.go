//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// resizeNotifications delivers SIGWINCH so attach can mirror local
// terminal resizes to the session.
func resizeNotifications() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	return ch, func() { signal.Stop(ch) }
}

//go:build windows

package main

import "os"

// resizeNotifications has no resize signal on Windows; the returned nil
// channel never fires.
func resizeNotifications() (<-chan os.Signal, func()) {
	return nil, func() {}
}

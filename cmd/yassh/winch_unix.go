//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// watchResize delivers a tick whenever the controlling terminal changes
// size.
func watchResize() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	return ch
}

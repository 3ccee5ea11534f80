//go:build windows

package main

import "os"

// Windows has no SIGWINCH. Resizes are picked up on the next redraw.
func watchResize() <-chan os.Signal {
	return make(chan os.Signal)
}

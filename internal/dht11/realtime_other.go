//go:build !linux

package dht11

import (
	"runtime"
	"runtime/debug"
)

func enterRealtime() func() {
	runtime.LockOSThread()
	gcPercent := debug.SetGCPercent(-1)
	return func() {
		debug.SetGCPercent(gcPercent)
		runtime.UnlockOSThread()
	}
}

//go:build linux

package dht11

import (
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const realtimeNice = -20

// enterRealtime pins the goroutine to its thread, pauses the GC and raises
// the thread's scheduling priority where permitted. The returned func undoes
// all three.
func enterRealtime() func() {
	runtime.LockOSThread()
	gcPercent := debug.SetGCPercent(-1)

	tid := unix.Gettid()
	raised := false
	// the raw syscall reports 20-nice
	raw, err := unix.Getpriority(unix.PRIO_PROCESS, tid)
	if err == nil {
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, realtimeNice); err != nil {
			log.Debug().Err(err).Msg("DHT11 read running without raised priority")
		} else {
			raised = true
		}
	}

	return func() {
		if raised {
			if err := unix.Setpriority(unix.PRIO_PROCESS, tid, 20-raw); err != nil {
				log.Warn().Err(err).Msg("Failed to restore thread priority after DHT11 read")
			}
		}
		debug.SetGCPercent(gcPercent)
		runtime.UnlockOSThread()
	}
}

package imagingcontroller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/imaging"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

const (
	DisabledPoll   = time.Hour
	CaptureTimeout = 30 * time.Second
)

var sleep = time.Sleep
var saveLatest = imaging.SaveLatest

func RunImagingController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting imaging controller")

		for {
			sleep(runCycle(shared))
		}
	}()
}

// runCycle captures one image when imaging is enabled and returns how long
// to wait before the next cycle.
func runCycle(shared *state.Shared) time.Duration {
	freq := shared.Config().DataLogging.ImagingFrequencyMins
	if freq == 0 {
		return DisabledPoll
	}

	ctx, cancel := context.WithTimeout(context.Background(), CaptureTimeout)
	defer cancel()
	if err := saveLatest(ctx, shared); err != nil {
		log.Warn().Err(err).Msg("Imaging cycle failed")
		telemetry.CycleError("imaging", err)
	}
	return time.Duration(freq) * time.Minute
}

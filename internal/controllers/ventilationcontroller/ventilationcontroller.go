package ventilationcontroller

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

// DisabledPoll is how often a disabled loop rechecks its frequency.
const DisabledPoll = time.Hour

var sleep = time.Sleep

func RunVentilationController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting ventilation controller")

		for {
			sleep(step(shared))
		}
	}()
}

func step(shared *state.Shared) time.Duration {
	cfg := shared.Config().Ventilation
	if cfg.FrequencyMins == 0 {
		return DisabledPoll
	}
	if err := runCycle(shared, time.Duration(cfg.DurationMins)*time.Minute); err != nil {
		log.Error().Err(err).Msg("Ventilation cycle failed")
		telemetry.CycleError("ventilation", err)
	}
	return time.Duration(cfg.FrequencyMins) * time.Minute
}

// runCycle runs the fan for duration and then puts it back the way it was.
// The state is released during the wait, so another loop may switch the fan
// in between; the restore overwrites that.
func runCycle(shared *state.Shared, duration time.Duration) error {
	var previous model.SwitchState
	overrideErr := shared.Do("ventilation start", func(p *state.ProgramState) error {
		s, err := device.State(p, model.Fan)
		if err != nil {
			return err
		}
		previous = s
		return device.SwitchFan(p, model.On)
	})
	if previous == "" {
		// the fan state was never read, there is nothing to restore
		return overrideErr
	}
	if overrideErr != nil {
		log.Warn().Err(overrideErr).Msg("Failed to start ventilation, restoring fan")
	} else {
		log.Info().Dur("duration", duration).Str("restore_to", string(previous)).Msg("Ventilating")
		sleep(duration)
	}

	restoreErr := shared.Do("ventilation restore", func(p *state.ProgramState) error {
		return device.SwitchFan(p, previous)
	})
	if overrideErr != nil {
		return overrideErr
	}
	return restoreErr
}

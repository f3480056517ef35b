package soilcontroller

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/notifications"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

var sleep = time.Sleep
var pumpWater = device.PumpWater
var notify = notifications.Notify

func RunSoilController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting soil moisture controller")

		for {
			rec, err := runCycle(shared)
			switch {
			case err == nil:
				notify("Watered plant", fmt.Sprintf("%d g, soil moisture was %.2f", rec.Amount, rec.MoistureBefore))
			case fault.Is(err, fault.KindPolicy):
				log.Info().Err(err).Msg("Skipping watering")
			default:
				log.Error().Err(err).Msg("Watering cycle failed")
				telemetry.CycleError("soil", err)
				notify("Watering failed", err.Error())
			}
			sleep(time.Duration(shared.Config().Controller.SoilLoopMins) * time.Minute)
		}
	}()
}

// runCycle waters the configured amount if the rate limiter allows it.
// Skips come back as policy errors: *fault.TooSoonError or
// fault.ErrNoHistory.
func runCycle(shared *state.Shared) (model.WateringRecord, error) {
	var rec model.WateringRecord
	err := shared.Do("soil moisture control", func(p *state.ProgramState) error {
		cfg := p.Config.Controller
		interval := time.Duration(cfg.WateringFrequencyHours) * time.Hour

		if err := p.History.CheckReady(p.Now(), interval, cfg.WaterWithoutHistory); err != nil {
			var tooSoon *fault.TooSoonError
			if errors.As(err, &tooSoon) {
				log.Debug().
					Dur("elapsed", tooSoon.Elapsed).
					Dur("interval", tooSoon.Interval).
					Msg("Watered too recently")
			}
			return err
		}

		var err error
		rec, err = pumpWater(p, cfg.WateringAmountGrams)
		if err != nil {
			return fmt.Errorf("water %d g: %w", cfg.WateringAmountGrams, err)
		}
		return nil
	})
	if err == nil {
		log.Info().
			Int("grams", rec.Amount).
			Float64("moisture_before", rec.MoistureBefore).
			Msg("Watered plant")
	}
	return rec, err
}

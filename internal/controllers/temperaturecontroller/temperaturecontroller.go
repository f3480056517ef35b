package temperaturecontroller

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

var sleep = time.Sleep
var switchFan = device.SwitchFan

func RunTemperatureController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting temperature controller")

		for {
			if err := runCycle(shared); err != nil {
				log.Error().Err(err).Msg("Temperature control cycle failed")
				telemetry.CycleError("temperature", err)
			}
			sleep(time.Duration(shared.Config().Controller.TemperatureLoopMins) * time.Minute)
		}
	}()
}

func runCycle(shared *state.Shared) error {
	return shared.Do("temperature control", func(p *state.ProgramState) error {
		temp, err := p.Sensors.Temperature()
		if err != nil {
			return err
		}

		cfg := p.Config.Controller
		fan, change := evaluateFan(temp, cfg.TemperatureSetPointUpper, cfg.TemperatureSetPointLower)

		log.Debug().
			Float64("temp", temp).
			Float64("upper", cfg.TemperatureSetPointUpper).
			Float64("lower", cfg.TemperatureSetPointLower).
			Bool("change", change).
			Msg("Evaluated fan")

		if !change {
			return nil
		}
		return switchFan(p, fan)
	})
}

// evaluateFan runs the fan above upper and stops it below lower. Between
// the set points the fan is left as it is.
func evaluateFan(temp, upper, lower float64) (model.SwitchState, bool) {
	switch {
	case temp > upper:
		return model.On, true
	case temp < lower:
		return model.Off, true
	default:
		return "", false
	}
}

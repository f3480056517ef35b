package lightcontroller

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

var sleep = time.Sleep

func RunLightController(shared *state.Shared) {
	go func() {
		log.Info().Msg("Starting light controller")

		for {
			if err := runCycle(shared); err != nil {
				log.Error().Err(err).Msg("Light control cycle failed")
				telemetry.CycleError("light", err)
			}
			sleep(time.Duration(shared.Config().Controller.LightLoopMins) * time.Minute)
		}
	}()
}

// runCycle switches the lights on every pass, whatever their current state.
func runCycle(shared *state.Shared) error {
	return shared.Do("light control", func(p *state.ProgramState) error {
		cfg := p.Config.Controller
		hour := p.Now().Hour()

		s := model.Off
		if ShouldTurnOnLight(cfg.SunlightHours, cfg.LightsOutHour, hour) {
			s = model.On
		}

		log.Debug().
			Int("hour", hour).
			Int("sunlight_hours", cfg.SunlightHours).
			Int("lights_out_hour", cfg.LightsOutHour).
			Str("lights", string(s)).
			Msg("Evaluated light window")

		return device.SwitchLights(p, s)
	})
}

// ShouldTurnOnLight reports whether hour falls in the grow light window.
// The window opens at lightsOutHour, when natural light ends, and lasts for
// the 24 - sunlightHours hours without daylight, wrapping past midnight.
// Zero sunlight keeps the lights on around the clock.
func ShouldTurnOnLight(sunlightHours, lightsOutHour, hour int) bool {
	return mod24(hour-lightsOutHour) < 24-sunlightHours
}

func mod24(v int) int {
	return ((v % 24) + 24) % 24
}

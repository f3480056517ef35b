package shutdown

import (
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/pinctrl"
	"github.com/thatsimonsguy/grow-controller/internal/state"
)

var exit = os.Exit
var setPin = pinctrl.SetPin

// Shutdown de-energises every relay, closes closers and exits. If the relays
// cannot be reached through the program state, each configured pin is
// driven high directly with pinctrl.
func Shutdown(shared *state.Shared, code int, closers ...io.Closer) {
	err := shared.Do("shutdown", func(p *state.ProgramState) error {
		return p.Relay.AllOff()
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to switch relays off, forcing pins high with pinctrl")
		for _, pin := range shared.Config().Relay.GPIOPins {
			if pin < 0 {
				continue
			}
			if err := setPin(pin, "op", "pn", "dh"); err != nil {
				log.Error().Err(err).Int("pin", pin).Msg("Failed to force relay pin high")
			}
		}
	}
	log.Info().Msg("All relays de-energised")

	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Close during shutdown failed")
		}
	}
	exit(code)
}

func ShutdownWithError(shared *state.Shared, err error, msg string, closers ...io.Closer) {
	log.Error().Err(err).Msg(msg)
	Shutdown(shared, 1, closers...)
}

package shutdown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/state/statetest"
)

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func stubExit(t *testing.T) *int {
	code := -1
	orig := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = orig })
	return &code
}

func TestShutdownSwitchesEverythingOff(t *testing.T) {
	code := stubExit(t)
	env := statetest.New(config.Default())
	shared := env.Shared()
	require.NoError(t, shared.Do("setup", func(p *state.ProgramState) error {
		for _, a := range model.Actuators {
			if err := p.Relay.Switch(p.Slot(a), model.On); err != nil {
				return err
			}
		}
		return nil
	}))

	c := &closer{}
	Shutdown(shared, 0, c)

	for _, a := range model.Actuators {
		assert.Equal(t, gpio.High, env.Line(a).Level, a)
	}
	assert.True(t, c.closed)
	assert.Equal(t, 0, *code)
}

func TestShutdownFallsBackToPinctrl(t *testing.T) {
	code := stubExit(t)
	var forced []int
	orig := setPin
	setPin = func(pin int, opts ...string) error {
		assert.Equal(t, []string{"op", "pn", "dh"}, opts)
		forced = append(forced, pin)
		return nil
	}
	defer func() { setPin = orig }()

	env := statetest.New(config.Default())
	env.Line(model.Fan).SetError = errors.New("line released")

	ShutdownWithError(env.Shared(), errors.New("fatal"), "Controller failed")

	assert.Equal(t, []int{17, 27, 22}, forced)
	assert.Equal(t, 1, *code)
}

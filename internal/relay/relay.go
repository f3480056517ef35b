// Package relay drives an active-low relay board. Slots are addressed by
// index; a slot either has a GPIO line bound to it or is left unbound.
package relay

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

type slot struct {
	pin  int
	line gpio.Line
}

type Relay struct {
	slots []slot
}

// New requests every non-negative pin as an output driven high (relay off).
// A pin that cannot be opened, or repeats an earlier slot's pin, leaves its
// slot unbound; those failures are joined into the returned error while the
// Relay itself stays usable.
func New(chip gpio.Chip, pins []int) (*Relay, error) {
	r := &Relay{slots: make([]slot, len(pins))}
	seen := map[int]int{}
	var errs []error

	for i, pin := range pins {
		r.slots[i].pin = pin
		if pin < 0 {
			continue
		}
		if other, dup := seen[pin]; dup {
			errs = append(errs, fmt.Errorf("slot %d: pin %d already bound to slot %d", i, pin, other))
			continue
		}
		line, err := chip.Output(pin, level(model.Off))
		if err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			continue
		}
		seen[pin] = i
		r.slots[i].line = line
		log.Debug().Int("slot", i).Int("pin", pin).Msg("Relay line bound idle high")
	}

	if len(errs) > 0 {
		return r, fault.Hardware("init relay", errors.Join(errs...))
	}
	return r, nil
}

// active-low board: energised relay means the line is pulled low
func level(s model.SwitchState) int {
	if s == model.On {
		return gpio.Low
	}
	return gpio.High
}

func stateOf(value int) model.SwitchState {
	if value == gpio.Low {
		return model.On
	}
	return model.Off
}

func (r *Relay) line(i int) (gpio.Line, error) {
	if i < 0 || i >= len(r.slots) {
		return nil, &fault.OutOfRangeError{Slot: i, Len: len(r.slots)}
	}
	if r.slots[i].line == nil {
		return nil, &fault.UnconfiguredError{Slot: i}
	}
	return r.slots[i].line, nil
}

func (r *Relay) Len() int { return len(r.slots) }

func (r *Relay) Bound(i int) bool {
	_, err := r.line(i)
	return err == nil
}

// Pin returns the GPIO number configured for slot i, or -1.
func (r *Relay) Pin(i int) int {
	if i < 0 || i >= len(r.slots) {
		return -1
	}
	return r.slots[i].pin
}

func (r *Relay) Switch(i int, s model.SwitchState) error {
	line, err := r.line(i)
	if err != nil {
		return err
	}
	if err := line.SetValue(level(s)); err != nil {
		return fault.Hardware(fmt.Sprintf("switch slot %d %s", i, s), err)
	}
	return nil
}

func (r *Relay) State(i int) (model.SwitchState, error) {
	line, err := r.line(i)
	if err != nil {
		return "", err
	}
	v, err := line.Value()
	if err != nil {
		return "", fault.Hardware(fmt.Sprintf("read slot %d", i), err)
	}
	return stateOf(v), nil
}

func (r *Relay) Toggle(i int) (model.SwitchState, error) {
	current, err := r.State(i)
	if err != nil {
		return "", err
	}
	next := current.Invert()
	return next, r.Switch(i, next)
}

// AllOff de-energises every bound slot, attempting all of them.
func (r *Relay) AllOff() error {
	var errs []error
	for i := range r.slots {
		if r.slots[i].line == nil {
			continue
		}
		if err := r.Switch(i, model.Off); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) Close() error {
	var errs []error
	for i := range r.slots {
		if r.slots[i].line == nil {
			continue
		}
		if err := r.slots[i].line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close slot %d: %w", i, err))
		}
		r.slots[i].line = nil
	}
	return errors.Join(errs...)
}

// Package statetest builds a ProgramState on top of fake hardware.
package statetest

import (
	"sync"
	"time"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/relay"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/store"
)

// Sensors returns fixed readings.
type Sensors struct {
	mu sync.Mutex

	Temp        float64
	Moisture    float64
	TempErr     error
	MoistureErr error
}

func (s *Sensors) Temperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Temp, s.TempErr
}

func (s *Sensors) SoilMoisture() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Moisture, s.MoistureErr
}

func (s *Sensors) SetTemperature(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Temp = t
}

type Env struct {
	State   *state.ProgramState
	Chip    *gpio.FakeChip
	Sensors *Sensors
	Store   *store.Memory
	Clock   *Clock

	shared *state.Shared
}

// Line returns the fake line behind an actuator.
func (e *Env) Line(a model.Actuator) *gpio.FakeLine {
	return e.Chip.Lines[e.State.Relay.Pin(e.State.Slot(a))]
}

// Shared wraps the state with a short lock timeout. Every call returns the
// same wrapper.
func (e *Env) Shared() *state.Shared {
	if e.shared == nil {
		e.shared = state.NewShared(e.State, 100*time.Millisecond)
	}
	return e.shared
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// New wires the default configuration's relay pins to a fake chip. The
// clock starts at 2024-06-01 12:00 local time.
func New(cfg config.Config, history ...model.WateringRecord) *Env {
	chip := gpio.NewFakeChip()
	r, err := relay.New(chip, cfg.Relay.GPIOPins)
	if err != nil {
		panic(err)
	}
	sensors := &Sensors{Temp: 25, Moisture: 0.4}
	st := store.NewMemory(history...)
	clock := &Clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)}

	p := state.New(cfg, r, sensors, st)
	p.Now = clock.Now

	return &Env{State: p, Chip: chip, Sensors: sensors, Store: st, Clock: clock}
}

// Package state holds the single mutable program state shared by every
// control loop and the control surface.
package state

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/history"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/relay"
	"github.com/thatsimonsguy/grow-controller/internal/store"
)

type Sensors interface {
	Temperature() (float64, error)
	SoilMoisture() (float64, error)
}

type ProgramState struct {
	Config  config.Config
	Relay   *relay.Relay
	Sensors Sensors
	History *history.History
	Store   store.Store
	Now     func() time.Time
}

// New loads the watering history from st. An unreadable history is logged
// and replaced by an empty one so the controller still starts.
func New(cfg config.Config, r *relay.Relay, sensors Sensors, st store.Store) *ProgramState {
	records, err := st.LoadWateringRecords()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load watering history, starting with an empty one")
		records = nil
	}
	log.Info().Int("records", len(records)).Msg("Loaded watering history")

	return &ProgramState{
		Config:  cfg,
		Relay:   r,
		Sensors: sensors,
		History: history.New(records),
		Store:   st,
		Now:     time.Now,
	}
}

func (p *ProgramState) Slot(a model.Actuator) int {
	switch a {
	case model.Light:
		return p.Config.Relay.LightSlot
	case model.Fan:
		return p.Config.Relay.FanSlot
	case model.Pump:
		return p.Config.Relay.PumpSlot
	default:
		return -1
	}
}

// Shared serialises access to a ProgramState. Holders must not sleep or wait
// on external processes inside Do.
type Shared struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	state   *ProgramState
	config  config.Config
}

func NewShared(p *ProgramState, timeout time.Duration) *Shared {
	return &Shared{
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
		state:   p,
		config:  p.Config,
	}
}

// Do runs fn with exclusive access to the state. If the state cannot be
// acquired within the timeout it returns a *fault.LockError without
// running fn.
func (s *Shared) Do(op string, fn func(p *ProgramState) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &fault.LockError{Op: op, Timeout: s.timeout}
	}
	defer s.sem.Release(1)

	return fn(s.state)
}

// Config is immutable after start and may be read without the lock.
func (s *Shared) Config() config.Config {
	return s.config
}

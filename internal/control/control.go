// Package control is the command surface shared by the HTTP API and the
// CLI. Every call goes through the shared state lock, so commands interleave
// safely with the control loops.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/imaging"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/store"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

const CaptureTimeout = 30 * time.Second

var saveLatest = imaging.SaveLatest

type Service struct {
	shared *state.Shared
}

func New(shared *state.Shared) *Service {
	return &Service{shared: shared}
}

func (s *Service) Config() config.Config {
	return s.shared.Config()
}

type RelayStatus struct {
	Device model.Actuator    `json:"device"`
	Slot   int               `json:"slot"`
	Pin    int               `json:"pin"`
	State  model.SwitchState `json:"state,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (s *Service) Switch(a model.Actuator, st model.SwitchState) error {
	return s.shared.Do("switch "+string(a), func(p *state.ProgramState) error {
		return device.Switch(p, a, st)
	})
}

func (s *Service) Toggle(a model.Actuator) (model.SwitchState, error) {
	var next model.SwitchState
	err := s.shared.Do("toggle "+string(a), func(p *state.ProgramState) error {
		var err error
		next, err = device.Toggle(p, a)
		return err
	})
	return next, err
}

func (s *Service) State(a model.Actuator) (model.SwitchState, error) {
	var current model.SwitchState
	err := s.shared.Do("state "+string(a), func(p *state.ProgramState) error {
		var err error
		current, err = device.State(p, a)
		return err
	})
	return current, err
}

// States reports every actuator. A per-device failure, such as an unbound
// slot, is reported in that entry rather than failing the whole call.
func (s *Service) States() ([]RelayStatus, error) {
	var out []RelayStatus
	err := s.shared.Do("relay states", func(p *state.ProgramState) error {
		for _, a := range model.Actuators {
			slot := p.Slot(a)
			status := RelayStatus{Device: a, Slot: slot, Pin: p.Relay.Pin(slot)}
			st, err := device.State(p, a)
			if err != nil {
				status.Error = err.Error()
			} else {
				status.State = st
			}
			out = append(out, status)
		}
		return nil
	})
	return out, err
}

// Water runs the pump immediately without consulting the rate limiter.
// grams <= 0 uses the configured watering amount.
func (s *Service) Water(grams int) (model.WateringRecord, error) {
	if grams <= 0 {
		grams = s.shared.Config().Controller.WateringAmountGrams
	}
	var rec model.WateringRecord
	err := s.shared.Do("manual watering", func(p *state.ProgramState) error {
		var err error
		rec, err = device.PumpWater(p, grams)
		return err
	})
	if err == nil {
		log.Info().Int("grams", grams).Msg("Manual watering complete")
	}
	return rec, err
}

func (s *Service) CaptureImage(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, CaptureTimeout)
	defer cancel()
	return saveLatest(ctx, s.shared)
}

func (s *Service) ImagePath() string {
	return s.shared.Config().DataLogging.ImagePath
}

func (s *Service) Readings() (model.Readings, error) {
	var r model.Readings
	err := s.shared.Do("read sensors", func(p *state.ProgramState) error {
		temp, err := p.Sensors.Temperature()
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		moisture, err := p.Sensors.SoilMoisture()
		if err != nil {
			return fmt.Errorf("soil moisture: %w", err)
		}
		r = model.Readings{Temperature: temp, SoilMoisture: moisture}
		return nil
	})
	if err == nil {
		telemetry.Readings(model.DataRecord{Timestamp: time.Now(), Temperature: r.Temperature, SoilMoisture: r.SoilMoisture})
	}
	return r, err
}

// History returns up to n watering records, newest first. n < 0 returns all.
func (s *Service) History(n int) ([]model.WateringRecord, error) {
	var out []model.WateringRecord
	err := s.shared.Do("read history", func(p *state.ProgramState) error {
		out = p.History.MostRecent(n)
		return nil
	})
	return out, err
}

// DataRecords reads the newest n data log records. The store is read after
// the state is released.
func (s *Service) DataRecords(n int) ([]model.DataRecord, error) {
	var st store.Store
	err := s.shared.Do("data log store", func(p *state.ProgramState) error {
		st = p.Store
		return nil
	})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fault.Configuration("read data log", fmt.Errorf("no store configured"))
	}
	return st.LoadDataRecords(n)
}

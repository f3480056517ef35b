// Package dht11 reads temperature and humidity from a DHT11 over its
// single-wire protocol by counting polling ticks per pulse.
package dht11

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
)

// DefaultMaxTicks bounds every phase wait. A healthy sensor needs well under
// a tenth of this on a Raspberry Pi.
const DefaultMaxTicks = 1000

const (
	frameBits     = 40
	startSignal   = 20 * time.Millisecond
	releaseSettle = time.Millisecond
)

const (
	PhaseAwaitResponse = "await_response"
	PhaseResponseLow   = "response_low"
	PhaseResponseHigh  = "response_high"
	PhaseBitLow        = "bit_low"
	PhaseBitHigh       = "bit_high"
)

var sleep = time.Sleep

// Frame is the raw 5-byte payload: humidity integer and decimal,
// temperature integer and decimal, checksum.
type Frame [5]byte

func (f Frame) Checksum() byte {
	return f[0] + f[1] + f[2] + f[3]
}

func (f Frame) Valid() error {
	if sum := f.Checksum(); sum != f[4] {
		return &fault.ChecksumError{Expected: sum, Actual: f[4]}
	}
	return nil
}

func (f Frame) Humidity() float64 {
	return float64(f[0]) + float64(f[1])*0.1
}

// Temperature applies the sign bit of the decimal byte as -1-t rather than
// plain negation. Existing logs were recorded with this transform.
func (f Frame) Temperature() float64 {
	t := float64(f[2])
	if f[3]&0x80 != 0 {
		t = -1 - t
	}
	return t + float64(f[3]&0x0F)*0.1
}

type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type Sensor struct {
	mu       sync.Mutex
	line     gpio.IOLine
	maxTicks int
}

type Option func(*Sensor)

func WithMaxTicks(n int) Option {
	return func(s *Sensor) {
		if n > 0 {
			s.maxTicks = n
		}
	}
}

func New(line gpio.IOLine, opts ...Option) *Sensor {
	s := &Sensor{line: line, maxTicks: DefaultMaxTicks}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read performs exactly one acquisition. Callers decide whether and when to
// retry; the sensor needs about a second between reads.
func (s *Sensor) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restore := enterRealtime()
	frame, err := s.readFrame()
	restore()

	if err != nil {
		log.Debug().Err(err).Msg("DHT11 read failed")
		return Reading{}, err
	}
	return Reading{Temperature: frame.Temperature(), Humidity: frame.Humidity()}, nil
}

func (s *Sensor) readFrame() (Frame, error) {
	var frame Frame

	if err := s.line.AsInput(); err != nil {
		return frame, fault.Hardware("dht11 release", err)
	}
	sleep(releaseSettle)

	if err := s.line.AsOutput(gpio.Low); err != nil {
		return frame, fault.Hardware("dht11 start signal", err)
	}
	sleep(startSignal)

	if err := s.line.AsInput(); err != nil {
		return frame, fault.Hardware("dht11 release", err)
	}

	for _, phase := range []struct {
		level int
		name  string
	}{
		{gpio.High, PhaseAwaitResponse},
		{gpio.Low, PhaseResponseLow},
		{gpio.High, PhaseResponseHigh},
	} {
		if _, err := s.waitWhile(phase.level, phase.name); err != nil {
			return frame, err
		}
	}

	var lows, highs [frameBits]int
	for i := 0; i < frameBits; i++ {
		var err error
		if lows[i], err = s.waitWhile(gpio.Low, PhaseBitLow); err != nil {
			return frame, err
		}
		if highs[i], err = s.waitWhile(gpio.High, PhaseBitHigh); err != nil {
			return frame, err
		}
	}

	return decode(lows, highs)
}

// decode packs bits MSB first; a bit is 1 when its high pulse outlasts the
// preceding low pulse.
func decode(lows, highs [frameBits]int) (Frame, error) {
	var frame Frame
	for i := 0; i < frameBits; i++ {
		frame[i/8] <<= 1
		if highs[i] > lows[i] {
			frame[i/8] |= 1
		}
	}
	return frame, frame.Valid()
}

// waitWhile polls until the line leaves level and returns how many polls
// saw level.
func (s *Sensor) waitWhile(level int, phase string) (int, error) {
	ticks := 0
	for {
		v, err := s.line.Value()
		if err != nil {
			return 0, fault.Hardware(fmt.Sprintf("dht11 %s", phase), err)
		}
		if v != level {
			return ticks, nil
		}
		ticks++
		if ticks > s.maxTicks {
			return 0, &fault.TimeoutError{Phase: phase, Budget: s.maxTicks}
		}
	}
}

func (s *Sensor) Close() error {
	return s.line.Close()
}

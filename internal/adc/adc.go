// Package adc reads analog voltages from an ADS1115 on the I²C bus.
package adc

import (
	"fmt"
	"sync"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

// Reader returns the voltage present on a single-ended analog channel.
type Reader interface {
	Voltage(channel int) (float64, error)
}

const Channels = 4

func checkChannel(channel int) error {
	if channel < 0 || channel >= Channels {
		return &fault.ChannelError{Channel: channel}
	}
	return nil
}

// Fake returns fixed voltages per channel.
type Fake struct {
	mu    sync.Mutex
	Volts map[int]float64
	Err   error
	Reads []int
}

func NewFake(volts map[int]float64) *Fake {
	return &Fake{Volts: volts}
}

func (f *Fake) Set(channel int, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volts[channel] = v
}

func (f *Fake) Voltage(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads = append(f.Reads, channel)
	if f.Err != nil {
		return 0, fault.Hardware(fmt.Sprintf("read channel %d", channel), f.Err)
	}
	return f.Volts[channel], nil
}

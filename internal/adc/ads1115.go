package adc

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

var singleEnded = [Channels]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADS1115 opens one PinADC per channel on first use and keeps it.
type ADS1115 struct {
	mu        sync.Mutex
	bus       i2c.BusCloser
	dev       *ads1x15.Dev
	fullScale physic.ElectricPotential
	pins      [Channels]ads1x15.PinADC
}

// NewADS1115 opens busName ("" selects the first bus) and probes the
// converter at address.
func NewADS1115(busName string, address uint16, fullScaleVolts float64) (*ADS1115, error) {
	if _, err := host.Init(); err != nil {
		return nil, fault.Hardware("init periph host", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fault.Hardware("open i2c bus", err)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = address
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fault.Hardware(fmt.Sprintf("open ads1115 at 0x%02x", address), err)
	}

	log.Info().
		Str("bus", bus.String()).
		Uint16("address", address).
		Float64("full_scale", fullScaleVolts).
		Msg("ADS1115 initialized")

	return &ADS1115{
		bus:       bus,
		dev:       dev,
		fullScale: physic.ElectricPotential(fullScaleVolts * float64(physic.Volt)),
	}, nil
}

func (a *ADS1115) Voltage(channel int) (float64, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pin := a.pins[channel]
	if pin == nil {
		var err error
		pin, err = a.dev.PinForChannel(singleEnded[channel], a.fullScale, 128*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			return 0, fault.Hardware(fmt.Sprintf("open channel %d", channel), err)
		}
		a.pins[channel] = pin
	}

	sample, err := pin.Read()
	if err != nil {
		return 0, fault.Hardware(fmt.Sprintf("read channel %d", channel), err)
	}
	return float64(sample.V) / float64(physic.Volt), nil
}

func (a *ADS1115) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, pin := range a.pins {
		if pin != nil {
			pin.Halt()
			a.pins[i] = nil
		}
	}
	return a.bus.Close()
}

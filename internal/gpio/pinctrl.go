package gpio

import (
	"errors"

	"github.com/thatsimonsguy/grow-controller/internal/pinctrl"
)

// PinctrlChip drives output lines with the pinctrl utility. It cannot time
// single-wire reads, so IO is unsupported.
type PinctrlChip struct{}

func NewPinctrlChip() *PinctrlChip {
	return &PinctrlChip{}
}

func (c *PinctrlChip) Output(offset int, initial int) (Line, error) {
	line := &pinctrlLine{pin: offset}
	if err := line.SetValue(initial); err != nil {
		return nil, err
	}
	return line, nil
}

func (c *PinctrlChip) IO(offset int) (IOLine, error) {
	return nil, errors.New("gpio: pinctrl backend cannot drive io lines")
}

func (c *PinctrlChip) Close() error {
	return nil
}

type pinctrlLine struct {
	pin int
}

var setPin = pinctrl.SetPin
var readLevel = pinctrl.ReadLevel

func (l *pinctrlLine) SetValue(value int) error {
	drive := "dl"
	if value != Low {
		drive = "dh"
	}
	return setPin(l.pin, "op", "pn", drive)
}

func (l *pinctrlLine) Value() (int, error) {
	high, err := readLevel(l.pin)
	if err != nil {
		return 0, err
	}
	if high {
		return High, nil
	}
	return Low, nil
}

func (l *pinctrlLine) Close() error {
	return nil
}

// Package gpio provides numbered GPIO lines with hardware abstraction.
// The real implementations use the Linux GPIO character device or the
// Raspberry Pi pinctrl utility. The fakes allow testing without hardware.
package gpio

const (
	Low  = 0
	High = 1
)

// Line is a single requested GPIO line.
type Line interface {
	SetValue(value int) error
	Value() (int, error)
	Close() error
}

// IOLine is a line whose direction can be switched at runtime, as required
// by single-wire sensors that share one pin for request and response.
type IOLine interface {
	Line
	AsOutput(value int) error
	// AsInput releases the line with the pull-up enabled.
	AsInput() error
}

// Chip hands out lines by offset (BCM number on a Raspberry Pi).
type Chip interface {
	Output(offset int, initial int) (Line, error)
	IO(offset int) (IOLine, error)
	Close() error
}

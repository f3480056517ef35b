//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevChip requests lines through the Linux GPIO character device.
type CdevChip struct {
	chip *gpiocdev.Chip
}

func NewCdevChip(name string) (*CdevChip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &CdevChip{chip: chip}, nil
}

func (c *CdevChip) Output(offset int, initial int) (Line, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	return line, nil
}

func (c *CdevChip) IO(offset int) (IOLine, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request io line %d: %w", offset, err)
	}
	return &cdevIOLine{Line: line}, nil
}

func (c *CdevChip) Close() error {
	return c.chip.Close()
}

type cdevIOLine struct {
	*gpiocdev.Line
}

func (l *cdevIOLine) AsOutput(value int) error {
	return l.Reconfigure(gpiocdev.AsOutput(value))
}

func (l *cdevIOLine) AsInput() error {
	return l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp)
}

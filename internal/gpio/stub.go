//go:build !linux

package gpio

import "errors"

// CdevChip is not available on non-Linux platforms.
type CdevChip struct{}

// NewCdevChip returns an error on non-Linux platforms.
func NewCdevChip(name string) (*CdevChip, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

func (c *CdevChip) Output(offset int, initial int) (Line, error) {
	return nil, errors.New("gpio: not supported")
}

func (c *CdevChip) IO(offset int) (IOLine, error) {
	return nil, errors.New("gpio: not supported")
}

func (c *CdevChip) Close() error {
	return nil
}

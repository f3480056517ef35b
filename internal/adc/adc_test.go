package adc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

func TestFakeChannelBounds(t *testing.T) {
	f := NewFake(map[int]float64{0: 1.65, 3: 0.5})

	v, err := f.Voltage(0)
	require.NoError(t, err)
	assert.Equal(t, 1.65, v)

	v, err = f.Voltage(3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	for _, ch := range []int{-1, 4, 12} {
		_, err := f.Voltage(ch)
		var chErr *fault.ChannelError
		require.ErrorAs(t, err, &chErr)
		assert.Equal(t, ch, chErr.Channel)
	}
	assert.Equal(t, []int{0, 3}, f.Reads)
}

func TestFakeErrorIsHardware(t *testing.T) {
	f := NewFake(map[int]float64{})
	f.Err = errors.New("i2c nack")

	_, err := f.Voltage(1)
	assert.Equal(t, fault.KindHardware, fault.KindOf(err))
}

package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

func newTestRelay(t *testing.T) (*Relay, *gpio.FakeChip) {
	chip := gpio.NewFakeChip()
	r, err := New(chip, []int{17, 27, 22, -1})
	require.NoError(t, err)
	return r, chip
}

func TestNew_BoundLinesIdleHigh(t *testing.T) {
	r, chip := newTestRelay(t)

	for _, pin := range []int{17, 27, 22} {
		require.Contains(t, chip.Lines, pin)
		assert.Equal(t, []int{gpio.High}, chip.Lines[pin].Writes, "pin %d", pin)
	}
	for i := 0; i < 3; i++ {
		s, err := r.State(i)
		require.NoError(t, err)
		assert.Equal(t, model.Off, s)
	}
	assert.False(t, r.Bound(3))
	assert.Equal(t, 4, r.Len())
}

func TestSwitch_ActiveLow(t *testing.T) {
	r, chip := newTestRelay(t)

	require.NoError(t, r.Switch(1, model.On))
	assert.Equal(t, gpio.Low, chip.Lines[27].Level)

	require.NoError(t, r.Switch(1, model.Off))
	assert.Equal(t, gpio.High, chip.Lines[27].Level)

	// only the addressed line moves
	assert.Equal(t, []int{gpio.High}, chip.Lines[17].Writes)
	assert.Equal(t, []int{gpio.High}, chip.Lines[22].Writes)
}

func TestSwitch_Errors(t *testing.T) {
	r, _ := newTestRelay(t)

	var unconfigured *fault.UnconfiguredError
	err := r.Switch(3, model.On)
	require.ErrorAs(t, err, &unconfigured)
	assert.Equal(t, 3, unconfigured.Slot)

	var outOfRange *fault.OutOfRangeError
	for _, slot := range []int{-1, 4, 99} {
		err = r.Switch(slot, model.On)
		require.ErrorAs(t, err, &outOfRange, "slot %d", slot)
		assert.Equal(t, 4, outOfRange.Len)
	}

	_, err = r.State(99)
	assert.True(t, fault.Is(err, fault.KindHardware))
}

func TestToggle(t *testing.T) {
	r, chip := newTestRelay(t)

	s, err := r.Toggle(0)
	require.NoError(t, err)
	assert.Equal(t, model.On, s)
	assert.Equal(t, gpio.Low, chip.Lines[17].Level)

	s, err = r.Toggle(0)
	require.NoError(t, err)
	assert.Equal(t, model.Off, s)
	assert.Equal(t, gpio.High, chip.Lines[17].Level)
}

func TestNew_PartialFailureLeavesSlotUnbound(t *testing.T) {
	chip := gpio.NewFakeChip()
	chip.Fail[27] = errors.New("device busy")

	r, err := New(chip, []int{17, 27, 17})
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, fault.KindHardware, fault.KindOf(err))

	assert.True(t, r.Bound(0))
	assert.False(t, r.Bound(1))
	assert.False(t, r.Bound(2), "duplicate pin must not be bound twice")

	var unconfigured *fault.UnconfiguredError
	assert.ErrorAs(t, r.Switch(1, model.On), &unconfigured)
}

func TestSwitch_HardwareError(t *testing.T) {
	r, chip := newTestRelay(t)
	chip.Lines[22].SetError = errors.New("ioctl failed")

	err := r.Switch(2, model.On)
	require.Error(t, err)
	assert.Equal(t, fault.KindHardware, fault.KindOf(err))
}

func TestAllOffAndClose(t *testing.T) {
	r, chip := newTestRelay(t)
	require.NoError(t, r.Switch(0, model.On))
	require.NoError(t, r.Switch(2, model.On))

	require.NoError(t, r.AllOff())
	for _, pin := range []int{17, 27, 22} {
		assert.Equal(t, gpio.High, chip.Lines[pin].Level)
	}

	require.NoError(t, r.Close())
	assert.True(t, chip.Lines[17].Closed)
	assert.False(t, r.Bound(0))
}

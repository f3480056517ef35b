package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeIOLineReplaysWaveform(t *testing.T) {
	line := NewFakeIOLine([]Segment{{High, 2}, {Low, 1}, {High, 3}})

	var got []int
	for i := 0; i < 8; i++ {
		v, err := line.Value()
		require.NoError(t, err)
		got = append(got, v)
	}

	// last level repeats once the script runs out
	assert.Equal(t, []int{1, 1, 0, 1, 1, 1, 1, 1}, got)
	assert.Equal(t, 8, line.Reads)
}

func TestFakeIOLineNoWaveform(t *testing.T) {
	_, err := NewFakeIOLine(nil).Value()
	assert.Error(t, err)
}

func TestFakeIOLineRecordsModes(t *testing.T) {
	line := NewFakeIOLine([]Segment{{High, 1}})
	require.NoError(t, line.AsInput())
	require.NoError(t, line.AsOutput(Low))
	require.NoError(t, line.AsInput())

	assert.Equal(t, []string{"in", "out:0", "in"}, line.Modes)
}

func TestFakeChipOutput(t *testing.T) {
	chip := NewFakeChip()
	chip.Fail[5] = errors.New("permission denied")

	line, err := chip.Output(17, High)
	require.NoError(t, err)
	require.NoError(t, line.SetValue(Low))

	assert.Equal(t, []int{High, Low}, chip.Lines[17].Writes)

	_, err = chip.Output(17, High)
	assert.Error(t, err, "line already requested")

	_, err = chip.Output(5, High)
	assert.Error(t, err)
}

func TestPinctrlLine(t *testing.T) {
	origSet, origRead := setPin, readLevel
	defer func() { setPin, readLevel = origSet, origRead }()

	var calls [][]string
	setPin = func(pin int, opts ...string) error {
		calls = append(calls, opts)
		return nil
	}
	readLevel = func(pin int) (bool, error) { return true, nil }

	line, err := NewPinctrlChip().Output(22, High)
	require.NoError(t, err)
	require.NoError(t, line.SetValue(Low))

	assert.Equal(t, [][]string{{"op", "pn", "dh"}, {"op", "pn", "dl"}}, calls)

	v, err := line.Value()
	require.NoError(t, err)
	assert.Equal(t, High, v)

	_, err = NewPinctrlChip().IO(4)
	assert.Error(t, err)
}

func TestFakeLineFailNext(t *testing.T) {
	l := &FakeLine{Level: High}
	l.FailNext = errors.New("busy")

	assert.EqualError(t, l.SetValue(Low), "busy")
	assert.Equal(t, High, l.Level)
	require.NoError(t, l.SetValue(Low))
	assert.Equal(t, []int{Low}, l.Writes)
}

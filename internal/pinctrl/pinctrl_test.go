package pinctrl

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getSample = `
 0: ip    pu | hi // ID_SDA/GPIO0 = input
 4: ip    pu | hi // GPIO4 = input
17: op dh pn | hi // GPIO17 = output
22: op dl pn | lo // GPIO22 = output
27: op dh pd | hi // GPIO27 = output
`

func TestParseGetOutput(t *testing.T) {
	states, err := parseGetOutput(strings.NewReader(getSample))
	require.NoError(t, err)
	require.Len(t, states, 5)

	assert.Equal(t, PinState{Pin: 17, Mode: "op", Pull: "pn", Drive: "dh", Level: "hi", Comment: "GPIO17 = output"}, states[17])
	assert.Equal(t, "dl", states[22].Drive)
	assert.Equal(t, "pd", states[27].Pull)
	assert.Equal(t, "pu", states[4].Pull)
	assert.Equal(t, "", states[4].Drive)
}

func TestParseLevelOutput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"0", false},
		{"1", true},
		{"\n1\n", true},
		{"\n0\n", false},
	}
	for _, tc := range tests {
		result, err := parseLevelOutput(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, result, tc.input)
	}

	_, err := parseLevelOutput("x")
	assert.Error(t, err)
}

func withRun(t *testing.T, fn func(args ...string) ([]byte, error)) {
	orig := run
	run = fn
	t.Cleanup(func() { run = orig })
}

func TestSetPinArgs(t *testing.T) {
	var got []string
	withRun(t, func(args ...string) ([]byte, error) {
		got = args
		return nil, nil
	})

	require.NoError(t, SetPin(17, "op", "pn", "dh"))
	assert.Equal(t, []string{"set", "17", "op", "pn", "dh"}, got)
}

func TestSetPinFailureIncludesOutput(t *testing.T) {
	withRun(t, func(args ...string) ([]byte, error) {
		return []byte("Invalid GPIO"), errors.New("exit status 1")
	})

	err := SetPin(99, "op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid GPIO")
}

func TestReadLevel(t *testing.T) {
	withRun(t, func(args ...string) ([]byte, error) {
		assert.Equal(t, []string{"lev", "27"}, args)
		return []byte("1\n"), nil
	})

	high, err := ReadLevel(27)
	require.NoError(t, err)
	assert.True(t, high)
}

func TestSetCommand(t *testing.T) {
	assert.Equal(t, "pinctrl set 4 ip pu", SetCommand(4, "ip", "pu"))
}

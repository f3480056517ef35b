package lightcontroller

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state/statetest"
)

func TestShouldTurnOnLight(t *testing.T) {
	tests := []struct {
		sunlight, lightsOut, hour int
		want                      bool
	}{
		{24, 5, 4, false},
		{23, 5, 5, true},
		{23, 5, 6, false},
		{20, 22, 23, true},
		{20, 22, 2, false},
		{20, 22, 1, true},
		{14, 20, 6, false},
		{14, 20, 5, true},
		{0, 7, 12, true},
		{0, 7, 6, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.sunlight, tt.lightsOut, tt.hour), func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldTurnOnLight(tt.sunlight, tt.lightsOut, tt.hour))
		})
	}
}

func TestShouldTurnOnLight_WindowLength(t *testing.T) {
	for sunlight := 0; sunlight <= 24; sunlight++ {
		for lightsOut := 0; lightsOut < 24; lightsOut++ {
			on := 0
			for hour := 0; hour < 24; hour++ {
				if ShouldTurnOnLight(sunlight, lightsOut, hour) {
					on++
				}
			}
			assert.Equal(t, 24-sunlight, on, "sunlight=%d lights_out=%d", sunlight, lightsOut)
		}
	}
}

func TestRunCycle_IsIdempotent(t *testing.T) {
	env := statetest.New(config.Default())
	shared := env.Shared()

	env.Clock.Set(time.Date(2024, 6, 1, 21, 0, 0, 0, time.Local))
	require.NoError(t, runCycle(shared))
	require.NoError(t, runCycle(shared))
	assert.Equal(t, gpio.Low, env.Line(model.Light).Level)
	// initial idle write plus one write per cycle
	assert.Equal(t, []int{gpio.High, gpio.Low, gpio.Low}, env.Line(model.Light).Writes)

	env.Clock.Set(time.Date(2024, 6, 2, 12, 0, 0, 0, time.Local))
	require.NoError(t, runCycle(shared))
	assert.Equal(t, gpio.High, env.Line(model.Light).Level)
}

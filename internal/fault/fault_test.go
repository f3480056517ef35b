package fault

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"out of range", &OutOfRangeError{Slot: 9, Len: 4}, KindHardware},
		{"unconfigured", &UnconfiguredError{Slot: 3}, KindConfiguration},
		{"channel", &ChannelError{Channel: 7}, KindHardware},
		{"degenerate", &DegenerateCalibrationError{Field: "moisture_nominal"}, KindConfiguration},
		{"timeout", &TimeoutError{Phase: "bit", Budget: 1000}, KindProtocol},
		{"checksum", &ChecksumError{Expected: 1, Actual: 2}, KindProtocol},
		{"too soon", &TooSoonError{Interval: time.Hour}, KindPolicy},
		{"no history", ErrNoHistory, KindPolicy},
		{"lock", &LockError{Op: "water", Timeout: time.Second}, KindLock},
		{"wrapped hardware", Hardware("read adc", errors.New("i2c nack")), KindHardware},
		{"persistence", Persistence("save history", errors.New("disk full")), KindPersistence},
		{"fmt wrapped", fmt.Errorf("cycle: %w", &TimeoutError{Phase: "response_low"}), KindProtocol},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(KindHardware, "op", nil))
}

func TestErrorUnwrapsToCause(t *testing.T) {
	cause := &ChecksumError{Expected: 0x10, Actual: 0x11}
	err := Hardware("read dht11", cause)

	var target *ChecksumError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, byte(0x10), target.Expected)
	assert.Contains(t, err.Error(), "read dht11")
	// outermost classification wins
	assert.Equal(t, KindHardware, KindOf(err))
	assert.True(t, Is(errors.Unwrap(err), KindProtocol))
}

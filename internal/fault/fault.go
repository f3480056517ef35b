// Package fault defines the closed set of error kinds the controller reports.
// Every error that leaves a hardware, policy or persistence boundary can be
// classified with KindOf.
package fault

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration"
	KindHardware      Kind = "hardware_access"
	KindProtocol      Kind = "protocol"
	KindPolicy        Kind = "policy_precondition"
	KindPersistence   Kind = "persistence"
	KindLock          Kind = "lock"
)

// Error wraps an underlying error with a kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Hardware(op string, err error) error      { return Wrap(KindHardware, op, err) }
func Persistence(op string, err error) error   { return Wrap(KindPersistence, op, err) }
func Configuration(op string, err error) error { return Wrap(KindConfiguration, op, err) }

type kinded interface {
	FaultKind() Kind
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(kinded); ok {
			return k.FaultKind()
		}
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

type OutOfRangeError struct {
	Slot int
	Len  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("relay slot %d out of range (%d slots)", e.Slot, e.Len)
}
func (e *OutOfRangeError) FaultKind() Kind { return KindHardware }

type UnconfiguredError struct {
	Slot int
}

func (e *UnconfiguredError) Error() string {
	return fmt.Sprintf("relay slot %d has no gpio line bound", e.Slot)
}
func (e *UnconfiguredError) FaultKind() Kind { return KindConfiguration }

type ChannelError struct {
	Channel int
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("analog channel %d not in [0,3]", e.Channel)
}
func (e *ChannelError) FaultKind() Kind { return KindHardware }

// DegenerateCalibrationError means a calibration produced a near-zero
// denominator and no value can be computed.
type DegenerateCalibrationError struct {
	Field       string
	Denominator float64
}

func (e *DegenerateCalibrationError) Error() string {
	return fmt.Sprintf("degenerate calibration: %s denominator %g", e.Field, e.Denominator)
}
func (e *DegenerateCalibrationError) FaultKind() Kind { return KindConfiguration }

type TimeoutError struct {
	Phase  string
	Budget int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out in phase %s after %d ticks", e.Phase, e.Budget)
}
func (e *TimeoutError) FaultKind() Kind { return KindProtocol }

type ChecksumError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%02x, got 0x%02x", e.Expected, e.Actual)
}
func (e *ChecksumError) FaultKind() Kind { return KindProtocol }

// TooSoonError is returned when watering is attempted before the configured
// interval has passed since the last recorded watering.
type TooSoonError struct {
	Last     time.Time
	Elapsed  time.Duration
	Interval time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("last watering %s ago, interval is %s", e.Elapsed.Round(time.Second), e.Interval)
}
func (e *TooSoonError) FaultKind() Kind { return KindPolicy }

type policyError string

func (e policyError) Error() string   { return string(e) }
func (e policyError) FaultKind() Kind { return KindPolicy }

// ErrNoHistory is returned by the rate limiter when no watering has ever been
// recorded.
var ErrNoHistory error = policyError("no watering history")

type LockError struct {
	Op      string
	Timeout time.Duration
}

func (e *LockError) Error() string {
	return fmt.Sprintf("%s: could not acquire program state within %s", e.Op, e.Timeout)
}
func (e *LockError) FaultKind() Kind { return KindLock }

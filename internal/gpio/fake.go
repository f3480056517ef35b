package gpio

import (
	"errors"
	"fmt"
	"sync"
)

// FakeLine is a test double that records every value written to it.
type FakeLine struct {
	mu sync.Mutex

	Offset int
	Level  int
	Writes []int
	Closed bool

	// SetError, if set, is returned by SetValue and the level is unchanged.
	SetError error
	// FailNext is like SetError but only for the next SetValue.
	FailNext error
}

func (f *FakeLine) SetValue(value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	if err := f.FailNext; err != nil {
		f.FailNext = nil
		return err
	}
	f.Level = value
	f.Writes = append(f.Writes, value)
	return nil
}

func (f *FakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Level, nil
}

func (f *FakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Segment is a run of identical levels lasting Ticks reads.
type Segment struct {
	Level int
	Ticks int
}

// FakeIOLine replays a scripted waveform. Each call to Value consumes one
// tick. Once the waveform is exhausted the last level repeats forever.
type FakeIOLine struct {
	mu sync.Mutex

	Waveform []Segment
	seg      int
	tick     int

	// Modes records direction changes: "in" or "out:<value>".
	Modes  []string
	Reads  int
	Closed bool
}

func NewFakeIOLine(waveform []Segment) *FakeIOLine {
	return &FakeIOLine{Waveform: waveform}
}

func (f *FakeIOLine) AsOutput(value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modes = append(f.Modes, fmt.Sprintf("out:%d", value))
	return nil
}

func (f *FakeIOLine) AsInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modes = append(f.Modes, "in")
	return nil
}

func (f *FakeIOLine) SetValue(value int) error {
	return f.AsOutput(value)
}

func (f *FakeIOLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if len(f.Waveform) == 0 {
		return 0, errors.New("no waveform configured")
	}
	for f.seg < len(f.Waveform)-1 && f.tick >= f.Waveform[f.seg].Ticks {
		f.seg++
		f.tick = 0
	}
	f.tick++
	return f.Waveform[f.seg].Level, nil
}

func (f *FakeIOLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeChip hands out FakeLines and remembers them by offset.
type FakeChip struct {
	mu sync.Mutex

	Lines   map[int]*FakeLine
	IOLines map[int]*FakeIOLine

	// Fail makes Output or IO for the given offsets return an error.
	Fail   map[int]error
	Closed bool
}

func NewFakeChip() *FakeChip {
	return &FakeChip{
		Lines:   map[int]*FakeLine{},
		IOLines: map[int]*FakeIOLine{},
		Fail:    map[int]error{},
	}
}

func (c *FakeChip) Output(offset int, initial int) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Fail[offset]; err != nil {
		return nil, err
	}
	if _, busy := c.Lines[offset]; busy {
		return nil, fmt.Errorf("line %d busy", offset)
	}
	line := &FakeLine{Offset: offset, Level: initial, Writes: []int{initial}}
	c.Lines[offset] = line
	return line, nil
}

func (c *FakeChip) IO(offset int) (IOLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Fail[offset]; err != nil {
		return nil, err
	}
	line, ok := c.IOLines[offset]
	if !ok {
		return nil, fmt.Errorf("no scripted io line at offset %d", offset)
	}
	return line, nil
}

func (c *FakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

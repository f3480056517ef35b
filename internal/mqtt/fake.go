package mqtt

import (
	"sync"

	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	Readings  []model.DataRecord
	Waterings []model.WateringRecord
	Relays    []RelayPayload

	// PublishError, if set, is returned by every Publish method.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishReadings(r model.DataRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Readings = append(f.Readings, r)
	return nil
}

func (f *FakePublisher) PublishWatering(r model.WateringRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Waterings = append(f.Waterings, r)
	return nil
}

func (f *FakePublisher) PublishRelay(a model.Actuator, s model.SwitchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Relays = append(f.Relays, RelayPayload{Device: string(a), State: string(s)})
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *FakePublisher) ReadingsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Readings)
}

func (f *FakePublisher) WateringsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Waterings)
}

package store

import (
	"sync"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// Memory is a Store that keeps everything in process. SaveErr and AppendErr
// let tests simulate a failing disk.
type Memory struct {
	mu sync.Mutex

	History []model.WateringRecord
	Data    []model.DataRecord
	Saves   int

	SaveErr   error
	AppendErr error
}

func NewMemory(history ...model.WateringRecord) *Memory {
	return &Memory{History: history}
}

func (m *Memory) LoadWateringRecords() ([]model.WateringRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WateringRecord(nil), m.History...), nil
}

func (m *Memory) SaveWateringRecords(records []model.WateringRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return fault.Persistence("save history", m.SaveErr)
	}
	m.History = append([]model.WateringRecord(nil), records...)
	m.Saves++
	return nil
}

func (m *Memory) AppendDataRecord(record model.DataRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return fault.Persistence("append data record", m.AppendErr)
	}
	m.Data = append(m.Data, record)
	return nil
}

func (m *Memory) LoadDataRecords(n int) ([]model.DataRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.Data
	if n >= 0 && n < len(out) {
		out = out[len(out)-n:]
	}
	return append([]model.DataRecord(nil), out...), nil
}

func (m *Memory) Close() error { return nil }

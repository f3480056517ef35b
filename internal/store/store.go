package store

import (
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// Store persists the watering history and the sensor data log. Errors are
// classified as fault.KindPersistence.
type Store interface {
	LoadWateringRecords() ([]model.WateringRecord, error)
	// SaveWateringRecords replaces the stored history with records.
	SaveWateringRecords(records []model.WateringRecord) error
	AppendDataRecord(record model.DataRecord) error
	// LoadDataRecords returns the newest n records in chronological order,
	// or all of them when n < 0.
	LoadDataRecords(n int) ([]model.DataRecord, error)
	Close() error
}

package db

import (
	"time"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

func (d *DB) LoadWateringRecords() ([]model.WateringRecord, error) {
	rows, err := d.conn.Query(`SELECT time, amount, moisture_before_watering FROM watering_records ORDER BY id`)
	if err != nil {
		return nil, fault.Persistence("load history", err)
	}
	defer rows.Close()

	var records []model.WateringRecord
	for rows.Next() {
		var ts int64
		var r model.WateringRecord
		if err := rows.Scan(&ts, &r.Amount, &r.MoistureBefore); err != nil {
			return nil, fault.Persistence("load history", err)
		}
		r.Time = time.Unix(ts, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Persistence("load history", err)
	}
	return records, nil
}

func (d *DB) LoadDataRecords(n int) ([]model.DataRecord, error) {
	// LIMIT -1 means no limit in sqlite
	rows, err := d.conn.Query(`
		SELECT timestamp, temperature, soil_moisture FROM (
			SELECT id, timestamp, temperature, soil_moisture FROM data_records ORDER BY id DESC LIMIT ?
		) ORDER BY id`, n)
	if err != nil {
		return nil, fault.Persistence("load datalog", err)
	}
	defer rows.Close()

	var records []model.DataRecord
	for rows.Next() {
		var ts int64
		var r model.DataRecord
		if err := rows.Scan(&ts, &r.Temperature, &r.SoilMoisture); err != nil {
			return nil, fault.Persistence("load datalog", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Persistence("load datalog", err)
	}
	return records, nil
}

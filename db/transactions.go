package db

import (
	"database/sql"
	"fmt"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// SaveWateringRecords replaces the whole history in one transaction.
func (d *DB) SaveWateringRecords(records []model.WateringRecord) error {
	tx, err := StartTransaction(d.conn)
	if err != nil {
		return fault.Persistence("save history", err)
	}
	if err := ReplaceWateringRecordsWithTx(tx, records); err != nil {
		RollbackTransaction(tx)
		return fault.Persistence("save history", err)
	}
	if err := CommitTransaction(tx); err != nil {
		return fault.Persistence("save history", err)
	}
	return nil
}

func ReplaceWateringRecordsWithTx(tx *sql.Tx, records []model.WateringRecord) error {
	if _, err := tx.Exec(`DELETE FROM watering_records`); err != nil {
		return fmt.Errorf("clear watering records: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO watering_records (time, amount, moisture_before_watering) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare watering insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Time.Unix(), r.Amount, r.MoistureBefore); err != nil {
			return fmt.Errorf("insert watering record: %w", err)
		}
	}
	return nil
}

func (d *DB) AppendDataRecord(r model.DataRecord) error {
	tx, err := StartTransaction(d.conn)
	if err != nil {
		return fault.Persistence("append datalog", err)
	}
	if err := InsertDataRecordWithTx(tx, r); err != nil {
		RollbackTransaction(tx)
		return fault.Persistence("append datalog", err)
	}
	if err := CommitTransaction(tx); err != nil {
		return fault.Persistence("append datalog", err)
	}
	return nil
}

func InsertDataRecordWithTx(tx *sql.Tx, r model.DataRecord) error {
	_, err := tx.Exec(`INSERT INTO data_records (timestamp, temperature, soil_moisture) VALUES (?, ?, ?)`,
		r.Timestamp.Unix(), r.Temperature, r.SoilMoisture)
	if err != nil {
		return fmt.Errorf("insert data record: %w", err)
	}
	return nil
}

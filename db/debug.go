package db

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/store"
)

// ImportCSVCLI copies an existing CSV history and data log into the
// database at dbPath, replacing its watering history.
func ImportCSVCLI(dbPath, historyPath, datalogPath string) error {
	d, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer d.Close()

	src := store.NewCSV(historyPath, datalogPath)
	history, err := src.LoadWateringRecords()
	if err != nil {
		return err
	}
	data, err := src.LoadDataRecords(-1)
	if err != nil {
		return err
	}

	tx, err := StartTransaction(d.conn)
	if err != nil {
		return err
	}
	if err := ReplaceWateringRecordsWithTx(tx, history); err != nil {
		RollbackTransaction(tx)
		return err
	}
	for _, r := range data {
		if err := InsertDataRecordWithTx(tx, r); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}
	if err := CommitTransaction(tx); err != nil {
		return err
	}

	log.Info().
		Int("watering_records", len(history)).
		Int("data_records", len(data)).
		Str("db", dbPath).
		Msg("Imported CSV files")
	return nil
}

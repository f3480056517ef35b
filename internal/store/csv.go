package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

var (
	historyHeader = []string{"time", "amount", "moisture_before_watering"}
	datalogHeader = []string{"timestamp", "temperature", "soil_moisture"}
)

// CSV keeps the history as a small file rewritten on every save and the
// data log as an append-only file. Timestamps are unix seconds.
type CSV struct {
	historyPath string
	datalogPath string

	historyMu sync.Mutex
	datalogMu sync.Mutex
}

func NewCSV(historyPath, datalogPath string) *CSV {
	return &CSV{historyPath: historyPath, datalogPath: datalogPath}
}

// LoadWateringRecords returns no records and no error when the file does
// not exist yet.
func (s *CSV) LoadWateringRecords() ([]model.WateringRecord, error) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	rows, cols, err := readCSV(s.historyPath)
	if err != nil {
		return nil, fault.Persistence("load history", err)
	}

	timeCol, ok := column(cols, "time", "timestamp")
	amountCol, ok2 := column(cols, "amount")
	moistCol, ok3 := column(cols, "moisture_before_watering")
	if len(rows) > 0 && !(ok && ok2 && ok3) {
		return nil, fault.Persistence("load history", fmt.Errorf("%s: unexpected header %v", s.historyPath, cols))
	}

	records := make([]model.WateringRecord, 0, len(rows))
	for i, row := range rows {
		ts, err := strconv.ParseInt(row[timeCol], 10, 64)
		if err != nil {
			return nil, fault.Persistence("load history", fmt.Errorf("row %d: time: %w", i+1, err))
		}
		amount, err := strconv.Atoi(row[amountCol])
		if err != nil {
			return nil, fault.Persistence("load history", fmt.Errorf("row %d: amount: %w", i+1, err))
		}
		moisture, err := strconv.ParseFloat(row[moistCol], 64)
		if err != nil {
			return nil, fault.Persistence("load history", fmt.Errorf("row %d: moisture: %w", i+1, err))
		}
		records = append(records, model.WateringRecord{
			Time:           time.Unix(ts, 0).UTC(),
			Amount:         amount,
			MoistureBefore: moisture,
		})
	}
	return records, nil
}

func (s *CSV) SaveWateringRecords(records []model.WateringRecord) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	tmpPath := s.historyPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fault.Persistence("save history", err)
	}

	w := csv.NewWriter(file)
	w.Write(historyHeader)
	for _, r := range records {
		w.Write([]string{
			strconv.FormatInt(r.Time.Unix(), 10),
			strconv.Itoa(r.Amount),
			strconv.FormatFloat(r.MoistureBefore, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fault.Persistence("save history", err)
	}
	file.Sync()
	file.Close()

	if err := os.Rename(tmpPath, s.historyPath); err != nil {
		return fault.Persistence("save history", err)
	}
	return nil
}

func (s *CSV) AppendDataRecord(r model.DataRecord) error {
	s.datalogMu.Lock()
	defer s.datalogMu.Unlock()

	file, err := os.OpenFile(s.datalogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fault.Persistence("append datalog", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fault.Persistence("append datalog", err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		w.Write(datalogHeader)
	}
	w.Write([]string{
		strconv.FormatInt(r.Timestamp.Unix(), 10),
		strconv.FormatFloat(r.Temperature, 'f', 2, 64),
		strconv.FormatFloat(r.SoilMoisture, 'f', 4, 64),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return fault.Persistence("append datalog", err)
	}
	return nil
}

func (s *CSV) LoadDataRecords(n int) ([]model.DataRecord, error) {
	s.datalogMu.Lock()
	defer s.datalogMu.Unlock()

	rows, cols, err := readCSV(s.datalogPath)
	if err != nil {
		return nil, fault.Persistence("load datalog", err)
	}
	tsCol, ok := column(cols, "timestamp")
	tempCol, ok2 := column(cols, "temperature")
	// older logs spelled the column soil_mositure
	soilCol, ok3 := column(cols, "soil_moisture", "soil_mositure")
	if len(rows) > 0 && !(ok && ok2 && ok3) {
		return nil, fault.Persistence("load datalog", fmt.Errorf("%s: unexpected header %v", s.datalogPath, cols))
	}

	if n >= 0 && n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	records := make([]model.DataRecord, 0, len(rows))
	for _, row := range rows {
		ts, err1 := strconv.ParseInt(row[tsCol], 10, 64)
		temp, err2 := strconv.ParseFloat(row[tempCol], 64)
		soil, err3 := strconv.ParseFloat(row[soilCol], 64)
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fault.Persistence("load datalog", err)
		}
		records = append(records, model.DataRecord{
			Timestamp:    time.Unix(ts, 0).UTC(),
			Temperature:  temp,
			SoilMoisture: soil,
		})
	}
	return records, nil
}

func (s *CSV) Close() error {
	return nil
}

func readCSV(path string) (rows [][]string, header []string, err error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err = r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, header, nil
}

func column(header []string, names ...string) (int, bool) {
	for i, h := range header {
		for _, n := range names {
			if h == n {
				return i, true
			}
		}
	}
	return 0, false
}
